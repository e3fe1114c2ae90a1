// Package lifecycle реализует отмену, рестарт и пост-обработку
// run job stage.
//
// Отмена делает не больше одного синхронного вызова Cleanup и никогда
// не возвращает ошибку: сбои логируются и считаются метриками.
package lifecycle

// Package manifest читает Kubernetes-манифесты, которые задачи
// кладут в контекст stage (outputs.manifests).
package manifest

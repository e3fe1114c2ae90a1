// Package providers содержит decorators конкретных cloud providers
// для run job stage.
//
//   - Kubernetes — job задаётся манифестом, outputs продвигаются
//     задачей promoteOutputs, очистка адресует манифест "job <name>"
//   - Titus — очистка адресует job по ID
package providers

package domain

// Ключи StageContext.
//
// Имена стабильны: их читают и пишут внешние задачи и engine,
// поэтому все обращения к контексту идут через эти константы.
const (
	KeyWaitForCompletion     = "waitForCompletion"
	KeyExpectedArtifacts     = "expectedArtifacts"
	KeyConsumeArtifactSource = "consumeArtifactSource"
	KeyCloudProvider         = "cloudProvider"
	KeyCredentials           = "credentials"
	KeyAccount               = "account"
	KeyNoOutput              = "noOutput"
	KeyManifestArtifact      = "manifestArtifact"
	KeyManifest              = "manifest"
	KeyManifests             = "manifests"
	KeySource                = "source"
	KeyOutputsManifests      = "outputs.manifests"
	KeyJobStatus             = "jobStatus"
	KeyCompletionDetails     = "completionDetails"
	KeyPropertyFileContents  = "propertyFileContents"
	KeyDeployJobs            = "deploy.jobs"
	KeyRestartDetails        = "restartDetails"
	KeyKatoTasks             = "kato.tasks"
	KeyResultObjects         = "resultObjects"
	KeyExecution             = "execution"
	KeyLogs                  = "logs"
	KeyArtifacts             = "artifacts"

	KeySkipExpressionEvaluation = "skipExpressionEvaluation"
)

// Ключи контекста отмены (cleanup context).
const (
	CleanupKeyJobName       = "jobName"
	CleanupKeyCloudProvider = "cloudProvider"
	CleanupKeyRegion        = "region"
	CleanupKeyCredentials   = "credentials"
	CleanupKeyJobID         = "jobId"
	CleanupKeyManifestName  = "manifestName"
	CleanupKeyLocation      = "location"
)

// OutputsPrefix — префикс пространства имён promoted outputs.
const OutputsPrefix = "outputs."

// OutputKey возвращает ключ в пространстве имён outputs: "outputs.<key>".
func OutputKey(key string) string {
	return OutputsPrefix + key
}

// RestartArchivedKeys — ключи, которые при рестарте переносятся
// в restartDetails и удаляются из живого контекста.
var RestartArchivedKeys = []string{
	KeyJobStatus,
	KeyCompletionDetails,
	KeyPropertyFileContents,
	KeyDeployJobs,
}

package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency         = "APILatency"
	MetricAPIRequestCount    = "APIRequestCount"
	MetricRatingsSubmitted   = "RatingsSubmitted"
	MetricGeofenceRejected   = "GeofenceRejected"
	MetricBiteIndex          = "BiteIndex"
	MetricBiteSampleCount    = "BiteSampleCount"
	MetricExternalAPIFailure = "ExternalAPIFailure"
	MetricSnapshotWritten    = "SnapshotWritten"

	// Dimension Keys
	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"
	DimProvider = "Provider"
	DimPeriod   = "Period"
	DimFishType = "FishType"

	// Metric Namespace
	MetricNamespace = "BiteIndex"
)

package instance

import "github.com/truckflow/dispatch-core/pkg/env"

// GetID identifies the running process in logs. TRUCKFLOW_INSTANCE_ID wins over the
// platform-provided DYNO; both unset yields "local".
func GetID() string {
	return env.First("local", "TRUCKFLOW_INSTANCE_ID", "DYNO")
}

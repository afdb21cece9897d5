package models

// HealthData reports API liveness.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

// HealthResponse wraps HealthData for API responses.
type HealthResponse struct {
	Body HealthData
}

// VersionData describes the running build.
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Platform  string `json:"platform" example:"linux/arm" doc:"OS and architecture"`
}

// VersionResponse wraps VersionData for API responses.
type VersionResponse struct {
	Body VersionData
}

// LEDGroups names the three LED groups the daemon drives.
type LEDGroups struct {
	Booted     string `json:"bmc_booted" example:"bmc_booted" doc:"Group lit while the host is off or POST has not started"`
	PostActive string `json:"post_active" example:"post_active" doc:"Group lit while POST is running"`
	PoweredOn  string `json:"fully_powered_on" example:"power_on" doc:"Group lit once POST completed"`
}

// StatusData is the tracked boot state together with the LED presentation.
type StatusData struct {
	Host         int       `json:"host" example:"0" doc:"Host index"`
	HostPowerOn  bool      `json:"host_power_on" example:"true" doc:"Whether the host is powered on"`
	BootStarted  bool      `json:"boot_started" example:"true" doc:"Whether the POST start code was seen this boot cycle"`
	BootEnded    bool      `json:"boot_ended" example:"false" doc:"Whether the POST end code was seen this boot cycle"`
	Presentation string    `json:"presentation" enum:"standby,post_active,powered_on" example:"post_active" doc:"LED presentation last applied"`
	LEDBackend   string    `json:"led_backend" example:"dbus" doc:"LED actuation backend"`
	Groups       LEDGroups `json:"groups" doc:"Configured LED group names"`
}

// StatusResponse wraps StatusData for API responses.
type StatusResponse struct {
	Body StatusData
}

// UnitState is the systemd ActiveState of one unit.
type UnitState struct {
	Unit  string `json:"unit" example:"xyz.openbmc_project.LED.GroupManager.service" doc:"Unit name"`
	State string `json:"state" example:"active" doc:"ActiveState (active, inactive, failed, unknown, ...)"`
}

// UnitsData lists the units the daemon depends on.
type UnitsData struct {
	Units []UnitState `json:"units" doc:"Dependency units"`
}

// UnitsResponse wraps UnitsData for API responses.
type UnitsResponse struct {
	Body UnitsData
}

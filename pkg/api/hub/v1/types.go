// Package v1 defines the wire frames of the confcenter push protocol.
//
// The protocol is a bidirectional persistent websocket connection. Clients
// send action frames; the server pushes ConfigChanged frames that carry no
// config data, so receivers always pull fresh state from the read endpoint.
package v1

// Client-to-server actions.
const (
	ActionRegisterListener   = "RegisterAppConfigListener"
	ActionUnregisterListener = "UnregisterAppConfigListener"
	ActionRegisterClientInfo = "RegisterClientInfo"
	ActionHeartbeat          = "Heartbeat"
)

// Server-to-client actions.
const (
	ActionConfigChanged = "ConfigChanged"
)

// Frame is one protocol message in either direction. Fields beyond Action
// are populated per action type.
type Frame struct {
	Action      string `json:"action"`
	AppID       string `json:"app_id,omitempty"`
	Environment string `json:"environment,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	HostName    string `json:"host_name,omitempty"`
	Version     string `json:"version,omitempty"`
}

// GroupName builds the notification group key for an (app, environment) pair.
func GroupName(appID, environment string) string {
	return appID + ":" + environment
}

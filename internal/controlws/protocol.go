package controlws

import "github.com/dl1pag/pocsag-transmitter/internal/config"

// request is the JSON-tagged enum of every client-issuable command (§6):
// SetConfig, DefaultConfig, SendMessage, Authenticate, GetConfig,
// GetTelemetry, GetTimeslot, GetVersion, Restart, Shutdown, Test. Only the
// fields relevant to Type are populated by the client.
type request struct {
	Type string `json:"type"`

	// Authenticate
	AuthKey string `json:"auth_key,omitempty"`

	// SetConfig
	Config *config.Config `json:"config,omitempty"`

	// SendMessage
	RIC      uint32 `json:"ric,omitempty"`
	Func     uint8  `json:"func,omitempty"`
	MType    string `json:"mtype,omitempty"`
	Text     string `json:"text,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// response is the JSON-tagged enum of every server reply: Config,
// Telemetry, TelemetryUpdate, Timeslot, Version, Message, Log, Authenticated.
type response struct {
	Type string `json:"type"`

	Config    *config.Config `json:"config,omitempty"`
	Telemetry any            `json:"telemetry,omitempty"`
	Timeslot  string         `json:"timeslot,omitempty"`
	Version   string         `json:"version,omitempty"`
	Message   string         `json:"message,omitempty"`
	Level     string         `json:"level,omitempty"`
	Authed    bool           `json:"authenticated,omitempty"`
}

const (
	reqSetConfig     = "SetConfig"
	reqDefaultConfig = "DefaultConfig"
	reqSendMessage   = "SendMessage"
	reqAuthenticate  = "Authenticate"
	reqGetConfig     = "GetConfig"
	reqGetTelemetry  = "GetTelemetry"
	reqGetTimeslot   = "GetTimeslot"
	reqGetVersion    = "GetVersion"
	reqRestart       = "Restart"
	reqShutdown      = "Shutdown"
	reqTest          = "Test"
)

const (
	respConfig          = "Config"
	respTelemetry       = "Telemetry"
	respTelemetryUpdate = "TelemetryUpdate"
	respTimeslot        = "Timeslot"
	respVersion         = "Version"
	respMessage         = "Message"
	respLog             = "Log"
	respAuthenticated   = "Authenticated"
)

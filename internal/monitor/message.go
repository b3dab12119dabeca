package monitor

import "time"

const reportMsgType = "PING_REPORT"

// Result is one target's outcome within a monitoring round.
type Result struct {
	Target    string  `json:"target"`
	IP        string  `json:"ip"`
	LatencyMs float32 `json:"latency_ms,omitempty"`
	JitterMs  float32 `json:"jitter_ms,omitempty"`
	Loss      float32 `json:"packet_loss"`
}

// Report is the JSON message produced after every round.
type Report struct {
	MsgType    string   `json:"msg_type"`
	Device     string   `json:"device"`
	PublicIP   string   `json:"public_ip,omitempty"`
	ExecutedAt string   `json:"executed_at"`
	Results    []Result `json:"pings"`
}

func newReport(device, publicIP string) *Report {
	return &Report{
		MsgType:    reportMsgType,
		Device:     device,
		PublicIP:   publicIP,
		ExecutedAt: time.Now().UTC().Format(time.RFC3339),
		Results:    []Result{},
	}
}

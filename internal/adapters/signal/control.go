package signal

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

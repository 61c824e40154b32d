package api

// General is the error envelope returned by the status server.
type General struct {
	Error      bool   `json:"error"`
	Msg        string `json:"msg"`
	StatusCode int    `json:"statusCode"`
}

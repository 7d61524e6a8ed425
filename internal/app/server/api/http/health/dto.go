package health

const (
	StatusOK       = "OK"
	StatusDegraded = "DEGRADED"
)

type Input struct{}

type Output struct {
	Body Response
}

type Response struct {
	Status    string `json:"status" enum:"OK,DEGRADED" doc:"DEGRADED when the configured storage was replaced by the file fallback"`
	Storage   string `json:"storage" example:"file" doc:"Active storage backend"`
	Requested string `json:"requested_storage" example:"postgres" doc:"Storage backend from configuration"`
	Records   int    `json:"records" example:"12" doc:"Active records in cache"`
}

package utils

// ResponseData is the JSON envelope every REST endpoint returns.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics on a non-nil error so the Recovery middleware can map it
// to the proper response envelope. Keeps handlers free of repetitive error plumbing.
func PanicIfNeeded(err error) {
	if err != nil {
		panic(err)
	}
}

package client

// ErrConnectionClosedByServer is returned once the server has closed the connection
type ErrConnectionClosedByServer struct {
	Err error
}

func (e *ErrConnectionClosedByServer) Error() string {
	if e.Err != nil {
		return "connection closed by server: " + e.Err.Error()
	}
	return "connection closed by server"
}

func (e *ErrConnectionClosedByServer) Unwrap() error {
	return e.Err
}

// ErrConnectionClosedByClient is returned when using a client after Close
type ErrConnectionClosedByClient struct{}

func (e *ErrConnectionClosedByClient) Error() string {
	return "connection closed by client"
}

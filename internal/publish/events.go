package publish

// Events receives the connection lifecycle of a publish session. Methods are
// called on the goroutine running Publish; OnNewBitrate is called from
// inside socket writes and must not block.
type Events interface {
	// A connection attempt to url is starting.
	OnConnectionStarted(url string)

	// The server accepted the stream; media is flowing.
	OnConnectionSuccess()

	// The attempt failed or the connection broke. A retry may follow.
	OnConnectionFailed(reason string)

	// Bytes written to the socket during the last window of at least one
	// second.
	OnNewBitrate(bitrate uint64)

	// The stream ended cleanly, at end of input or on request.
	OnDisconnect()
}

// NopEvents ignores all events. Embed it to implement a subset.
type NopEvents struct{}

func (NopEvents) OnConnectionStarted(string) {}
func (NopEvents) OnConnectionSuccess()       {}
func (NopEvents) OnConnectionFailed(string)  {}
func (NopEvents) OnNewBitrate(uint64)        {}
func (NopEvents) OnDisconnect()              {}

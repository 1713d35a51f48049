package rw

import "net/http"

// Recorder wraps an http.ResponseWriter and keeps the status code
// and the number of body bytes written through it.
type Recorder struct {
	http.ResponseWriter
	status int
	n      int64
}

func NewRecorder(w http.ResponseWriter) *Recorder {
	return &Recorder{ResponseWriter: w}
}

func (rec *Recorder) WriteHeader(status int) {
	if rec.status == 0 {
		rec.status = status
	}
	rec.ResponseWriter.WriteHeader(status)
}

// Write implements io.Writer
func (rec *Recorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(p)
	rec.n += int64(n) // Write can be called multiple times per response
	return n, err
}

// Status returns the status sent to the client, 200 if the handler wrote nothing
func (rec *Recorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

// BytesWritten returns the total number of body bytes written
func (rec *Recorder) BytesWritten() int64 {
	return rec.n
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rec *Recorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

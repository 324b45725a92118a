package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
)

// reexecStageEnv names the environment variable that tells a re-exec'd
// process which cascade stage to enter. Its value is
// one of "stage2" or "stage3".
const reexecStageEnv = "CHARIOT_SANDBOX_STAGE"

// reexecFDEnv names the environment variable carrying the file descriptor
// number of the inherited pipe a re-exec'd process should read its request
// from.
const reexecFDEnv = "CHARIOT_SANDBOX_FD"

// request is the JSON payload passed down the re-exec chain: the sandbox
// configuration plus the final argv to execute once the rootfs view is
// ready.
type request struct {
	Config Config   `json:"config"`
	Argv   []string `json:"argv"`
}

// writeRequest marshals req to a fresh os.Pipe and returns the read end, to
// be handed to the child as an inherited ExtraFile.
func writeRequest(req request) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: create request pipe: %w", ErrProtocol, err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("%w: marshal request: %w", ErrProtocol, err)
	}

	go func() {
		defer w.Close()
		w.Write(data)
	}()

	return r, nil
}

// readRequest reads and decodes a request from fd 3 (the first ExtraFile),
// the convention used by every reexec stage.
func readRequest() (*request, error) {
	f := os.NewFile(3, "chariot-sandbox-request")
	defer f.Close()

	data, err := readAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read request: %w", ErrProtocol, err)
	}

	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: decode request: %w", ErrProtocol, err)
	}
	return &req, nil
}

func readAll(f *os.File) ([]byte, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

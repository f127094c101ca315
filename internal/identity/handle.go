package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidHandle is returned by JobIDFromHandle when handle cannot be
// normalized to a job id.
var ErrInvalidHandle = errors.New("invalid job handle")

var gearmanHandleRe = regexp.MustCompile(`^H:.+?:\d+$`)

// JobIDFromHandle normalizes a broker-specific job handle to a stable
// job id.
//
// If handle contains "//" (as Gearman handles do, e.g.
// "tcp://host:port//H:host:1"), only the substring after the last "//"
// is considered. A handle of the Gearman shape "H:<ip>:<seq>" is
// validated against that pattern; anything else — in particular the
// plain UUID job ids the AMQP broker hands back — is accepted as-is.
func JobIDFromHandle(handle string) (string, error) {
	id := handle
	if idx := strings.LastIndex(handle, "//"); idx >= 0 {
		id = handle[idx+2:]
	}

	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}

	if strings.HasPrefix(id, "H:") && !gearmanHandleRe.MatchString(id) {
		return "", fmt.Errorf("%w: malformed gearman handle %q", ErrInvalidHandle, id)
	}

	return id, nil
}

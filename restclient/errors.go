package restclient

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-listsync/mutation"
)

type errorBody struct {
	Message string `json:"message"`
}

// statusError builds the error for a non 2xx reply. The message comes from
// the body when it is a {"message": ...} document.
func statusError(status int, body []byte) *goerrors.Error {
	message := mutation.DefaultErrorMessage
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Message) != "" {
		message = parsed.Message
	}

	return goerrors.New(message, StatusCategory(status)).
		WithCode(status).
		WithTextCode(goerrors.HTTPStatusToTextCode(status))
}

// StatusCategory maps an HTTP status to an error category. Server side
// failures are external to the client.
func StatusCategory(status int) goerrors.Category {
	if status >= http.StatusInternalServerError {
		return goerrors.CategoryExternal
	}
	return goerrors.HTTPStatusToCategory(status)
}

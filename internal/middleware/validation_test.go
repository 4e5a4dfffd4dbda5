package middleware

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateMessageText(t *testing.T) {
	assert.NoError(t, ValidateMessageText("Konnichiwa"))
	assert.Error(t, ValidateMessageText(""))
	assert.Error(t, ValidateMessageText(strings.Repeat("a", 10001)))
	assert.Error(t, ValidateMessageText("bad \xff bytes"))
}

func TestValidateConversationID(t *testing.T) {
	assert.NoError(t, ValidateConversationID(uuid.NewString()))
	assert.Error(t, ValidateConversationID("abc"))
	assert.Error(t, ValidateConversationID(""))
}

func TestValidateReportReason(t *testing.T) {
	assert.NoError(t, ValidateReportReason("inappropriate content"))
	assert.Error(t, ValidateReportReason(""))
	assert.Error(t, ValidateReportReason(strings.Repeat("r", 501)))
}

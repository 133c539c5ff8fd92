package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	vigilhttp "github.com/aretw0/vigil/pkg/adapters/http"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCore records calls and returns canned values.
type stubCore struct {
	outcome      domain.TriggerOutcome
	prompt       domain.VoicePrompt
	lastCallID   string
	lastDigits   string
	lastSpeech   string
	lastStatus   string
	lastRawField string
}

func (c *stubCore) HandleTrigger(ctx context.Context, event domain.TriggerEvent) domain.TriggerOutcome {
	return c.outcome
}

func (c *stubCore) HandleVoicePrompt(ctx context.Context, callID string) domain.VoicePrompt {
	c.lastCallID = callID
	return c.prompt
}

func (c *stubCore) HandleResponse(ctx context.Context, callID, digits, speech string, raw map[string]string) domain.VoicePrompt {
	c.lastCallID = callID
	c.lastDigits = digits
	c.lastSpeech = speech
	c.lastRawField = raw["CallSid"]
	return c.prompt
}

func (c *stubCore) HandleCallStatus(ctx context.Context, callID, status string) {
	c.lastCallID = callID
	c.lastStatus = status
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestTrigger_RoundTrip(t *testing.T) {
	core := &stubCore{outcome: domain.TriggerOutcome{Status: domain.StatusCalling, CallID: "CA1"}}
	handler := vigilhttp.NewHandler(core, nil)

	body := `{"subject_id":"subj-1","phone":"+15550001111","event_type":"panic_button","event_payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/trigger", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var outcome domain.TriggerOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, domain.StatusCalling, outcome.Status)
	assert.Equal(t, "CA1", outcome.CallID)
}

func TestTrigger_BadBody(t *testing.T) {
	handler := vigilhttp.NewHandler(&stubCore{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/trigger", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoice_RendersGatherTwiML(t *testing.T) {
	core := &stubCore{prompt: domain.VoicePrompt{
		Message:        "Are you safe?",
		Gather:         true,
		NumDigits:      1,
		TimeoutSeconds: 6,
		ActionURL:      "https://vigil.example.com/twilio/gather",
	}}
	handler := vigilhttp.NewHandler(core, nil)

	rec := postForm(t, handler, "/twilio/voice", url.Values{"CallSid": {"CA1"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "CA1", core.lastCallID)
	assert.Contains(t, rec.Body.String(), "<Gather")
	assert.Contains(t, rec.Body.String(), "Are you safe?")
}

func TestGather_PassesFieldsThrough(t *testing.T) {
	core := &stubCore{prompt: domain.GoodbyePrompt()}
	handler := vigilhttp.NewHandler(core, nil)

	rec := postForm(t, handler, "/twilio/gather", url.Values{
		"CallSid":      {"CA1"},
		"Digits":       {"1"},
		"SpeechResult": {"I am safe"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CA1", core.lastCallID)
	assert.Equal(t, "1", core.lastDigits)
	assert.Equal(t, "I am safe", core.lastSpeech)
	assert.Equal(t, "CA1", core.lastRawField)
}

func TestGather_MissingFieldsAreEmptyNotErrors(t *testing.T) {
	core := &stubCore{prompt: domain.GoodbyePrompt()}
	handler := vigilhttp.NewHandler(core, nil)

	rec := postForm(t, handler, "/twilio/gather", url.Values{})

	// The carrier must get a well-formed voice response either way.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Response>")
	assert.Empty(t, core.lastDigits)
	assert.Empty(t, core.lastSpeech)
}

func TestStatus_Forwarded(t *testing.T) {
	core := &stubCore{}
	handler := vigilhttp.NewHandler(core, nil)

	rec := postForm(t, handler, "/twilio/status", url.Values{
		"CallSid":    {"CA1"},
		"CallStatus": {"no-answer"},
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "CA1", core.lastCallID)
	assert.Equal(t, "no-answer", core.lastStatus)
}

func TestHealthz(t *testing.T) {
	handler := vigilhttp.NewHandler(&stubCore{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

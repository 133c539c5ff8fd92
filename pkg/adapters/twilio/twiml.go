package twilio

import (
	"fmt"
	"strconv"

	"github.com/aretw0/vigil/pkg/domain"
	"github.com/twilio/twilio-go/twiml"
)

// RenderPrompt converts a carrier-agnostic voice prompt into a TwiML document.
func RenderPrompt(p domain.VoicePrompt) (string, error) {
	var verbs []twiml.Element

	if p.Gather {
		// actionOnEmptyResult makes Twilio POST to the action URL even
		// when the window closes without input. Without it the document
		// falls through past the Gather and the no-input callback the
		// retry path depends on never arrives.
		gather := &twiml.VoiceGather{
			Input:               "dtmf speech",
			NumDigits:           strconv.Itoa(p.NumDigits),
			Timeout:             strconv.Itoa(p.TimeoutSeconds),
			Action:              p.ActionURL,
			Method:              "POST",
			ActionOnEmptyResult: "true",
			InnerElements: []twiml.Element{
				&twiml.VoiceSay{Message: p.Message},
			},
		}
		verbs = append(verbs, gather)
	} else {
		verbs = append(verbs, &twiml.VoiceSay{Message: p.Message})
		if p.Hangup {
			verbs = append(verbs, &twiml.VoiceHangup{})
		}
	}

	doc, err := twiml.Voice(verbs)
	if err != nil {
		return "", fmt.Errorf("failed to render twiml: %w", err)
	}
	return doc, nil
}

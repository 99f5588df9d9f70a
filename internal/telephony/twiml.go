package telephony

import "github.com/twilio/twilio-go/twiml"

// RingingTwiML keeps the caller on hold while the console rings. The
// notifier's answer path bridges the call; this response just covers the
// window until someone accepts or the ring expires.
func RingingTwiML() (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoicePause{Length: "30"},
		&twiml.VoiceSay{Message: "No one is available to take your call. Please try again later."},
		&twiml.VoiceHangup{},
	})
}

// RejectTwiML declines the call outright.
func RejectTwiML() (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceReject{},
	})
}

// BridgeTwiML connects the caller to the named console client.
func BridgeTwiML(clientIdentity string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceDial{
			InnerElements: []twiml.Element{
				&twiml.VoiceClient{Identity: clientIdentity},
			},
		},
	})
}

package models

import (
	"fmt"
	"strings"
)

// Channel identifies the messaging medium an item is dispatched through.
type Channel string

// Supported channels.
const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelCall     Channel = "call"
)

// Operation names an action within a channel. The values match the operation
// identifiers used by the workflow host.
type Operation string

// SMS operations.
const (
	OperationSendSMS         Operation = "sendSms"
	OperationSendTemplateSMS Operation = "sendTemplateSms"
)

// WhatsApp operations.
const (
	OperationSendWhatsApp Operation = "sendWhatsapp"
)

// Call operations.
const (
	OperationMakeCall                  Operation = "makeCall"
	OperationSendVoiceBlast            Operation = "sendVoiceBlast"
	OperationSendVoiceBlastInteractive Operation = "sendVoiceBlastInteractive"
)

// Route pairs an operation with the channel that owns it. An Operation value on
// its own carries no meaning.
type Route struct {
	Channel   Channel
	Operation Operation
}

func (r Route) String() string {
	return fmt.Sprintf("%s/%s", r.Channel, r.Operation)
}

var channelOperations = map[Channel][]Operation{
	ChannelSMS:      {OperationSendSMS, OperationSendTemplateSMS},
	ChannelWhatsApp: {OperationSendWhatsApp},
	ChannelCall:     {OperationMakeCall, OperationSendVoiceBlast, OperationSendVoiceBlastInteractive},
}

// Channels returns the supported channels in a stable order.
func Channels() []Channel {
	return []Channel{ChannelSMS, ChannelWhatsApp, ChannelCall}
}

// Operations returns the operations owned by the channel.
func (c Channel) Operations() []Operation {
	ops := channelOperations[c]
	return append([]Operation(nil), ops...)
}

// Valid reports whether the channel is one of the supported channels.
func (c Channel) Valid() bool {
	_, ok := channelOperations[c]
	return ok
}

// Supports reports whether op belongs to the channel.
func (c Channel) Supports(op Operation) bool {
	for _, candidate := range channelOperations[c] {
		if candidate == op {
			return true
		}
	}
	return false
}

// ParseChannel normalises a channel name.
func ParseChannel(value string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(value)))
	if !ch.Valid() {
		return "", fmt.Errorf("unknown channel %q", value)
	}
	return ch, nil
}

package nrf24

type Command byte

/*
#define TRANSMIT_PAYLOAD               0x04
#define ENTER_SNIFFER_MODE             0x05
#define ENTER_PROMISCUOUS_MODE         0x06
#define ENTER_TONE_TEST_MODE           0x07
#define TRANSMIT_ACK_PAYLOAD           0x08
#define SET_CHANNEL                    0x09
#define GET_CHANNEL                    0x0A
#define ENABLE_LNA                     0x0B
#define TRANSMIT_PAYLOAD_GENERIC       0x0C
#define ENTER_PROMISCUOUS_MODE_GENERIC 0x0D
#define RECEIVE_PACKET                 0x12
*/

const (
	TRANSMIT_PAYLOAD       Command = 0x04
	ENTER_SNIFFER_MODE     Command = 0x05
	ENTER_PROMISCUOUS_MODE Command = 0x06
	SET_CHANNEL            Command = 0x09
	GET_CHANNEL            Command = 0x0A
	ENABLE_LNA_PA          Command = 0x0B
	RECEIVE_PAYLOAD        Command = 0x12
)

func (c Command) String() string {
	switch c {
	case TRANSMIT_PAYLOAD:
		return "TRANSMIT_PAYLOAD"
	case ENTER_SNIFFER_MODE:
		return "ENTER_SNIFFER_MODE"
	case ENTER_PROMISCUOUS_MODE:
		return "ENTER_PROMISCUOUS_MODE"
	case SET_CHANNEL:
		return "SET_CHANNEL"
	case GET_CHANNEL:
		return "GET_CHANNEL"
	case ENABLE_LNA_PA:
		return "ENABLE_LNA_PA"
	case RECEIVE_PAYLOAD:
		return "RECEIVE_PAYLOAD"
	}
	return "UNKNOWN_COMMAND"
}

const (
	// USBPacketSize is the fixed size of every USB transfer to and from the dongle.
	USBPacketSize = 64
	// MaxPayloadSize is the largest ESB payload.
	MaxPayloadSize = 32
	// MaxChannel is the highest RF channel (2400 + 125 MHz).
	MaxChannel = 125
)

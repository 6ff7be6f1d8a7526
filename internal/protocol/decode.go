package protocol

import "github.com/coreman2200/stripcast/internal/pixel"

// Decode classifies one datagram. It never fails: anything unrecognised comes
// back as Ignored.
func Decode(data []byte) Command {
	if len(data) >= 2 {
		switch data[0] {
		case ModeSparse:
			return decodeSparse(data[1], data[2:])
		case ModeSequential:
			return decodeSequential(data[1], data[2:])
		}
	}

	switch string(data) {
	case "warn":
		return ToggleAlert{}
	case "hue":
		return ToggleSecureStream{}
	case "audvis":
		return ToggleAudioVis{}
	case "rainbow":
		return ToggleRainbow{}
	}

	if len(data) > 0 && data[0] == 'r' {
		switch len(data) {
		case 2:
			return SetRainbowSpeed{Units: data[1]}
		case 3:
			if isDigit(data[1]) && isDigit(data[2]) {
				return SetRainbowSpeed{Units: 10*(data[1]-'0') + (data[2] - '0')}
			}
		}
	}

	return Ignored{Reason: "unhandled data", Data: data}
}

// decodeSparse reads [index, r, g, b] records; a trailing partial record is
// dropped.
func decodeSparse(timeout byte, payload []byte) SetSparse {
	cmd := SetSparse{Timeout: timeout, Records: make([]Record, 0, len(payload)/4)}
	for i := 0; i+4 <= len(payload); i += 4 {
		cmd.Records = append(cmd.Records, Record{
			Index: int(payload[i]),
			Color: pixel.RGB{R: payload[i+1], G: payload[i+2], B: payload[i+3]},
		})
	}
	return cmd
}

func decodeSequential(timeout byte, payload []byte) SetSequential {
	cmd := SetSequential{Timeout: timeout, Pixels: make([]pixel.RGB, 0, len(payload)/3)}
	for i := 0; i+3 <= len(payload); i += 3 {
		cmd.Pixels = append(cmd.Pixels, pixel.RGB{R: payload[i], G: payload[i+1], B: payload[i+2]})
	}
	return cmd
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

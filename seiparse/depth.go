package seiparse

// DepthRepresentationType enumerates the depth_representation_type field
// of the depth_representation_info SEI payload.
type DepthRepresentationType uint64

const (
	UniformInverseZ    DepthRepresentationType = 0
	UniformDisparity   DepthRepresentationType = 1
	UniformZ           DepthRepresentationType = 2
	NonuniformDisparity DepthRepresentationType = 3
)

// DepthRepresentationInfo is the parsed depth_representation_info(177) SEI
// payload (§3, §4.6).
type DepthRepresentationInfo struct {
	Version uint8

	HasZNear, HasZFar, HasDMin, HasDMax bool
	ZNear, ZFar, DMin, DMax             float64

	DepthRepresentationType DepthRepresentationType
	DisparityReferenceView  uint64

	NonlinearModel []uint64
}

const (
	nalSEIPrefix = 39
	nalSEISuffix = 40
	payloadDepthRepresentationInfo = 177
)

// ParseAuxCSubtype reads the auxC subtype bytes attached to a depth
// auxiliary image: a 32-bit length followed by a sequence of HEVC NAL
// units. It scans NAL units of type 39/40 for SEI messages and, upon the
// first depth_representation_info(177) payload found, parses and returns
// it. Only the first matching SEI message is consulted — later ones are
// ignored, matching the upstream reader's current (TODO-marked) behavior.
//
// A nil, nil return means no depth_representation_info SEI was present,
// which is not an error: depth images may simply omit it.
func ParseAuxCSubtype(data []byte) (*DepthRepresentationInfo, error) {
	if len(data) < 4 {
		return nil, nil
	}
	length := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	nalData := data[4:]
	if uint32(len(nalData)) > length {
		nalData = nalData[:length]
	}

	for _, nal := range splitNALUnits(nalData) {
		if len(nal) == 0 {
			continue
		}
		nalType := (nal[0] >> 1) & 0x3F
		if nalType != nalSEIPrefix && nalType != nalSEISuffix {
			continue
		}
		// skip the 2-byte NAL header before the SEI payload sequence.
		payload := nal
		if len(payload) >= 2 {
			payload = payload[2:]
		}
		if info := scanSEIMessages(payload); info != nil {
			return info, nil
		}
	}
	return nil, nil
}

// splitNALUnits treats the buffer as one or more NAL units each prefixed
// by a 4-byte big-endian length, the same framing hvcC.GetHeaders emits.
func splitNALUnits(data []byte) [][]byte {
	var out [][]byte
	for len(data) >= 4 {
		n := int(uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]))
		data = data[4:]
		if n < 0 || n > len(data) {
			break
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

// scanSEIMessages reads payload_id and payload_size as plain 8-bit fields
// (not the full SEI 0xFF-extension scheme) per the reader's simplified SEI
// framing, then dispatches payload 177 to the depth-info parser.
func scanSEIMessages(payload []byte) *DepthRepresentationInfo {
	if len(payload) < 2 {
		return nil
	}
	payloadID := int(payload[0])
	payloadSize := int(payload[1])
	payload = payload[2:]
	if payloadSize > len(payload) {
		payloadSize = len(payload)
	}
	if payloadID == payloadDepthRepresentationInfo {
		return parseDepthRepresentationInfo(payload[:payloadSize])
	}
	return nil
}

func parseDepthRepresentationInfo(body []byte) *DepthRepresentationInfo {
	r := newBitReader(body)
	info := &DepthRepresentationInfo{}

	info.HasZNear = r.ReadBit() != 0
	info.HasZFar = r.ReadBit() != 0
	info.HasDMin = r.ReadBit() != 0
	info.HasDMax = r.ReadBit() != 0

	info.DepthRepresentationType = DepthRepresentationType(r.ReadUE())

	if info.HasDMin || info.HasDMax {
		info.DisparityReferenceView = r.ReadUE()
	}

	if info.HasZNear {
		info.ZNear = readDepthFloat(r)
	}
	if info.HasZFar {
		info.ZFar = readDepthFloat(r)
	}
	if info.HasDMin {
		info.DMin = readDepthFloat(r)
	}
	if info.HasDMax {
		info.DMax = readDepthFloat(r)
	}

	if !r.Ok() {
		return nil
	}
	return info
}

// readDepthFloat decodes the 14-bit custom float used by depth SEI values:
// sign(1) | exponent(7) | mantissa_len(5)+1 | mantissa(mantissa_len).
func readDepthFloat(r *bitReader) float64 {
	sign := r.ReadBit()
	exponent := r.ReadBits(7)
	mantissaLen := int(r.ReadBits(5)) + 1
	mantissa := r.ReadBits(mantissaLen)

	var value float64
	if exponent > 0 {
		if exponent == 127 {
			return 0 // reserved/unspecified
		}
		value = pow2(int(exponent)-31) * (1 + float64(mantissa)/pow2(mantissaLen))
	} else {
		value = pow2(-(30+mantissaLen)) * float64(mantissa)
	}
	if sign != 0 {
		value = -value
	}
	return value
}

func pow2(exp int) float64 {
	if exp >= 0 {
		v := 1.0
		for i := 0; i < exp; i++ {
			v *= 2
		}
		return v
	}
	v := 1.0
	for i := 0; i < -exp; i++ {
		v /= 2
	}
	return v
}

package echo

import "testing"

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"Empty", nil, 0xffff},
		{"RFC1071", []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}, 0x220d},
		{"OddLength", []byte{0x01, 0x02, 0x03}, 0xfbfd},
		{"AllZero", make([]byte, 8), 0xffff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum = %#04x, want %#04x", got, tt.want)
			}
		})
	}
}

// A packet whose checksum field holds the correct value sums to zero.
func TestChecksumSelfVerifies(t *testing.T) {
	req := NewRequest(mustAddr("192.0.2.1"), 0x1234, 7)
	req.SetPayloadSize(13)

	b, err := Encode(req)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := Checksum(b); got != 0 {
		t.Errorf("checksum over encoded packet = %#04x, want 0", got)
	}
}

package uci

import (
	"encoding/binary"
	"fmt"
)

// ChecksumSize 末尾校验字段长度（小端）
const ChecksumSize = 2

// ChecksumFunc 帧校验算法，输入为校验字段之前的全部字节
type ChecksumFunc func(frame []byte) uint16

// CRC16 CRC-16/CCITT（多项式 0x1021，初值 0xFFFF，不反射）
func CRC16(frame []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range frame {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// AppendChecksum 追加小端校验；sum 为 nil 时使用 CRC16
func AppendChecksum(frame []byte, sum ChecksumFunc) []byte {
	if sum == nil {
		sum = CRC16
	}
	var le [ChecksumSize]byte
	binary.LittleEndian.PutUint16(le[:], sum(frame))
	return append(frame, le[:]...)
}

// StripChecksum 校验并去掉末尾 2 字节校验，返回不含校验的帧
func StripChecksum(raw []byte, sum ChecksumFunc) ([]byte, error) {
	if len(raw) < HeaderSize+ChecksumSize {
		return nil, fmt.Errorf("%w: %d bytes with checksum", ErrShortFrame, len(raw))
	}
	if sum == nil {
		sum = CRC16
	}
	frame := raw[:len(raw)-ChecksumSize]
	got := binary.LittleEndian.Uint16(raw[len(raw)-ChecksumSize:])
	if want := sum(frame); got != want {
		return nil, fmt.Errorf("%w: got=0x%04X want=0x%04X", ErrChecksumMismatch, got, want)
	}
	return frame, nil
}

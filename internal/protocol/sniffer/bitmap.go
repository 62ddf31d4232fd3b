package sniffer

import "strings"

// 收发状态位图（固件定义，按此顺序输出）
const (
	RxTOADetectFailed        uint16 = 0x0001
	RxSignalLost             uint16 = 0x0002
	RxPreambleTimeout        uint16 = 0x0004
	RxSFDTimeout             uint16 = 0x0008
	RxSECDEDDecodeFailure    uint16 = 0x0010
	RxRSDecodeFailure        uint16 = 0x0020
	RxDecodeChainFailure     uint16 = 0x0040
	RxDataBufferOverflow     uint16 = 0x0080
	RxSTSMismatch            uint16 = 0x0100
	TxError                  uint16 = 0x0800
	TxPayloadLengthErrorMask uint16 = 0xA000
)

var trxBits = []struct {
	mask uint16
	name string
}{
	{RxTOADetectFailed, "RX_TOA_DETECT_FAILED"},
	{RxSignalLost, "RX_SIGNAL_LOST"},
	{RxPreambleTimeout, "RX_PRMBL_TIMEOUT"},
	{RxSFDTimeout, "RX_SFD_TIMEOUT"},
	{RxSECDEDDecodeFailure, "RX_SECDED_DECODE_FAILURE"},
	{RxRSDecodeFailure, "RX_RS_DECODE_FAILURE"},
	{RxDecodeChainFailure, "RX_DECODE_CHAIN_FAILURE"},
	{RxDataBufferOverflow, "RX_DATA_BUFFER_OVERFLOW"},
	{RxSTSMismatch, "RX_STS_MISMATCH"},
	{TxError, "TX_ERROR"},
	// 0xA000 任意一位置位即视为载荷长度错误
	{TxPayloadLengthErrorMask, "TX_PAYLOAD_LENGTH_ERROR"},
}

// TRXReasons 返回位图中置位的失败原因，0 返回 nil
func TRXReasons(bitmap uint16) []string {
	var out []string
	for _, b := range trxBits {
		if bitmap&b.mask != 0 {
			out = append(out, b.name)
		}
	}
	return out
}

// TRXBitmapString 位图转可读文本；0 为 "SUCCESS"，多个原因以 "| " 连接
func TRXBitmapString(bitmap uint16) string {
	if bitmap == 0 {
		return "SUCCESS"
	}
	return strings.Join(TRXReasons(bitmap), "| ")
}

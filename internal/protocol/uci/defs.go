package uci

import "fmt"

// MessageType UCI 消息类型（byte0 bit[7:5]）
type MessageType uint8

const (
	MessageTypeCommand      MessageType = 0x01
	MessageTypeResponse     MessageType = 0x02
	MessageTypeNotification MessageType = 0x03
	MessageTypeUndefined    MessageType = 0xFF // 仅用于解析失败的占位，不会被发送
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeCommand:
		return "COMMAND"
	case MessageTypeResponse:
		return "RESPONSE"
	case MessageTypeNotification:
		return "NOTIFICATION"
	case MessageTypeUndefined:
		return "UNDEFINED"
	}
	return fmt.Sprintf("MT(0x%02X)", uint8(t))
}

// GID 功能组标识（4bit）
type GID uint8

const (
	GIDCoreGeneric GID = 0x00
	GIDSession     GID = 0x01
	GIDRange       GID = 0x02
	GIDVendor      GID = 0x0A // Forthink 厂商组
	GIDVendorB     GID = 0x0B
	GIDVendorC     GID = 0x0C
	GIDRFTest      GID = 0x0D
	GIDSniffer     GID = 0x0E
	GIDVendorF     GID = 0x0F
)

// OID 组内操作码（6bit）
type OID uint8

// Sniffer 组 (GID 0x0E) 操作码
const (
	OIDSnifferResetStatusNtf          OID = 0x00
	OIDSnifferReboot                  OID = 0x01
	OIDSnifferGetRebootReason         OID = 0x02
	OIDSnifferGetVersion              OID = 0x03
	OIDSnifferGetRadioCfgVersion      OID = 0x04
	OIDSnifferCfgGPIO                 OID = 0x05
	OIDSnifferReadGPIO                OID = 0x06
	OIDSnifferSetGPIO                 OID = 0x07
	OIDSnifferEnterPowerMode          OID = 0x0A
	OIDSnifferXOControl               OID = 0x0B
	OIDSnifferSetCurrentLimit         OID = 0x0C
	OIDSnifferVerifyImageChecksum     OID = 0x0D
	OIDSnifferSetCRCCfg               OID = 0x0E
	OIDSnifferSetTxSlotsOutputPower   OID = 0x0F
	OIDSnifferStoreRadioSettings      OID = 0x10
	OIDSnifferSetBuffer               OID = 0x12
	OIDSnifferGetBuffer               OID = 0x13
	OIDSnifferClearBuffer             OID = 0x14
	OIDSnifferCfgTxMode               OID = 0x18
	OIDSnifferStartTxMode             OID = 0x19
	OIDSnifferCfgRxMode               OID = 0x1A
	OIDSnifferStartRxMode             OID = 0x1B
	OIDSnifferStoreProtectionKey      OID = 0x1C
	OIDSnifferSetEpochID              OID = 0x1D
	OIDSnifferStoreKey                OID = 0x1E
	OIDSnifferDeleteKey               OID = 0x1F
	OIDSnifferImportKey               OID = 0x20
	OIDSnifferEvictKey                OID = 0x21
	OIDSnifferEvictAllKeys            OID = 0x22
	OIDSnifferCfgSTS                  OID = 0x23
	OIDSnifferSetPayload              OID = 0x26
	OIDSnifferGetPayload              OID = 0x27
	OIDSnifferCfgRangingApp           OID = 0x28
	OIDSnifferResetRangingAppCfg      OID = 0x29
	OIDSnifferCfgRangingSeq           OID = 0x2D
	OIDSnifferStartRanging            OID = 0x2E
	OIDSnifferLoopback                OID = 0x30
	OIDSnifferStartLoopback           OID = 0x31
	OIDSnifferGetRangingStatus        OID = 0x35
	OIDSnifferGetRangingResult        OID = 0x36
	OIDSnifferGetCIR                  OID = 0x37
	OIDSnifferGetCFO                  OID = 0x38
	OIDSnifferGetFirstPathInfo        OID = 0x39
	OIDSnifferStoreRangingAppSettings OID = 0x3A
	OIDSnifferClearRangingAppSettings OID = 0x3B
)

var snifferOIDNames = map[OID]string{
	OIDSnifferResetStatusNtf:          "SNIFFER_RESET_STATUS_NTF",
	OIDSnifferReboot:                  "SNIFFER_REBOOT",
	OIDSnifferGetRebootReason:         "SNIFFER_GET_REBOOT_REASON",
	OIDSnifferGetVersion:              "SNIFFER_GET_VERSION",
	OIDSnifferGetRadioCfgVersion:      "SNIFFER_GET_RADIO_CFG_VERSION",
	OIDSnifferCfgGPIO:                 "SNIFFER_CFG_GPIO",
	OIDSnifferReadGPIO:                "SNIFFER_READ_GPIO",
	OIDSnifferSetGPIO:                 "SNIFFER_SET_GPIO",
	OIDSnifferEnterPowerMode:          "SNIFFER_ENTER_POWER_MODE",
	OIDSnifferXOControl:               "SNIFFER_XO_CONTROL_CMD",
	OIDSnifferSetCurrentLimit:         "SNIFFER_SET_CURRENT_LIMIT",
	OIDSnifferVerifyImageChecksum:     "SNIFFER_VERIFY_IMAGE_CHECKSUM",
	OIDSnifferSetCRCCfg:               "SNIFFER_SET_CRC_CFG",
	OIDSnifferSetTxSlotsOutputPower:   "SNIFFER_SET_TX_SLOTS_OUTPUT_POWER",
	OIDSnifferStoreRadioSettings:      "SNIFFER_STORE_RADIO_SETTINGS",
	OIDSnifferSetBuffer:               "SNIFFER_SET_BUFFER",
	OIDSnifferGetBuffer:               "SNIFFER_GET_BUFFER",
	OIDSnifferClearBuffer:             "SNIFFER_CLEAR_BUFFER",
	OIDSnifferCfgTxMode:               "SNIFFER_CFG_TX_MODE",
	OIDSnifferStartTxMode:             "SNIFFER_START_TX_MODE",
	OIDSnifferCfgRxMode:               "SNIFFER_CFG_RX_MODE",
	OIDSnifferStartRxMode:             "SNIFFER_START_RX_MODE",
	OIDSnifferStoreProtectionKey:      "SNIFFER_STORE_PROTECTION_KEY",
	OIDSnifferSetEpochID:              "SNIFFER_SET_EPOCH_ID",
	OIDSnifferStoreKey:                "SNIFFER_STORE_KEY",
	OIDSnifferDeleteKey:               "SNIFFER_DELETE_KEY",
	OIDSnifferImportKey:               "SNIFFER_IMPORT_KEY",
	OIDSnifferEvictKey:                "SNIFFER_EVICT_KEY",
	OIDSnifferEvictAllKeys:            "SNIFFER_EVICT_ALL_KEYS",
	OIDSnifferCfgSTS:                  "SNIFFER_CFG_STS",
	OIDSnifferSetPayload:              "SNIFFER_SET_PAYLOAD",
	OIDSnifferGetPayload:              "SNIFFER_GET_PAYLOAD",
	OIDSnifferCfgRangingApp:           "SNIFFER_CFG_RANGING_APP",
	OIDSnifferResetRangingAppCfg:      "SNIFFER_RESET_RANGING_APP_CFG",
	OIDSnifferCfgRangingSeq:           "SNIFFER_CFG_RANGING_SEQ",
	OIDSnifferStartRanging:            "SNIFFER_START_RANGING",
	OIDSnifferLoopback:                "SNIFFER_LOOPBACK",
	OIDSnifferStartLoopback:           "SNIFFER_START_LOOPBACK",
	OIDSnifferGetRangingStatus:        "SNIFFER_GET_RANGING_STATUS",
	OIDSnifferGetRangingResult:        "SNIFFER_GET_RANGING_RESULT",
	OIDSnifferGetCIR:                  "SNIFFER_GET_CIR",
	OIDSnifferGetCFO:                  "SNIFFER_GET_CFO",
	OIDSnifferGetFirstPathInfo:        "SNIFFER_GET_FIRST_PATH_INFO",
	OIDSnifferStoreRangingAppSettings: "SNIFFER_STORE_RANGING_APP_SETTINGS",
	OIDSnifferClearRangingAppSettings: "SNIFFER_CLEAR_RANGING_APP_SETTINGS",
}

// SnifferOIDName 返回 Sniffer 组操作码名称，未定义的操作码返回十六进制表示
func SnifferOIDName(oid OID) string {
	if name, ok := snifferOIDNames[oid]; ok {
		return name
	}
	return fmt.Sprintf("OID(0x%02X)", uint8(oid))
}

// IsSnifferOID 判断操作码是否属于 Sniffer 组已定义的地址空间
func IsSnifferOID(oid OID) bool {
	_, ok := snifferOIDNames[oid]
	return ok
}

// Status UCI 状态码（UCI Generic 8.5 表 32 + 厂商扩展）
type Status uint8

const (
	// Core 通用状态码
	StatusOK                 Status = 0x00
	StatusRejected           Status = 0x01
	StatusFailed             Status = 0x02
	StatusSyntaxError        Status = 0x03
	StatusInvalidParam       Status = 0x04
	StatusInvalidRange       Status = 0x05
	StatusInvalidMessageSize Status = 0x06
	StatusUnknownGID         Status = 0x07
	StatusUnknownOID         Status = 0x08
	StatusReadOnly           Status = 0x09
	StatusCommandRetry       Status = 0x0A
	StatusUnknown            Status = 0x0B
	StatusNotApplicable      Status = 0x0C

	// 会话管理状态码
	StatusSessionNotExist          Status = 0x11
	StatusSessionDuplicate         Status = 0x12
	StatusSessionActive            Status = 0x13
	StatusMaxSessionsExceeded      Status = 0x14
	StatusSessionNotConfigured     Status = 0x15
	StatusActiveSessionsOngoing    Status = 0x16
	StatusMulticastListFull        Status = 0x17
	StatusAddressNotFound          Status = 0x18
	StatusAddressAlreadyPresent    Status = 0x19
	StatusInitiationTimeTooOld     Status = 0x1A
	StatusOKNegativeDistanceReport Status = 0x1B
	StatusInvalidSTSIndex          Status = 0x1C

	// 测距失败状态码
	StatusRangingTxFailed         Status = 0x20
	StatusRangingRxTimeout        Status = 0x21
	StatusRangingRxPhyDecFailed   Status = 0x22
	StatusRangingRxPhyToaFailed   Status = 0x23
	StatusRangingRxPhyStsFailed   Status = 0x24
	StatusRangingRxMacDecFailed   Status = 0x25
	StatusRangingRxMacIEDecFailed Status = 0x26
	StatusRangingRxMacIEMissing   Status = 0x27

	// 厂商状态码
	StatusInvalidResponderSlotIndex Status = 0xA0
	StatusLicenseNeed               Status = 0xA1
	StatusLicenseVerifyFailed       Status = 0xA2
	StatusInvalidPublicKey          Status = 0xA3
	StatusSNTooLong                 Status = 0xA4

	// 私有一致性校验
	StatusRangingConsistencyCheckFailed Status = 0xE1

	// 实现/簿记状态码
	StatusVerificationFailed Status = 0x7D
	StatusReboot             Status = 0x80
	StatusRebootWDT          Status = 0x81
	StatusCRCError           Status = 0xF8
	StatusNotImplemented     Status = 0xFE
	StatusUndefined          Status = 0xFF
)

var statusNames = map[Status]string{
	StatusOK:                            "UCI_STATUS_OK",
	StatusRejected:                      "UCI_STATUS_REJECTED",
	StatusFailed:                        "UCI_STATUS_FAILED",
	StatusSyntaxError:                   "UCI_STATUS_SYNTAX_ERROR",
	StatusInvalidParam:                  "UCI_STATUS_INVALID_PARAM",
	StatusInvalidRange:                  "UCI_STATUS_INVALID_RANGE",
	StatusInvalidMessageSize:            "UCI_STATUS_INVALID_MESSAGE_SIZE",
	StatusUnknownGID:                    "UCI_STATUS_UNKNOWN_GID",
	StatusUnknownOID:                    "UCI_STATUS_UNKNOWN_OID",
	StatusReadOnly:                      "UCI_STATUS_READ_ONLY",
	StatusCommandRetry:                  "UCI_STATUS_COMMAND_RETRY",
	StatusUnknown:                       "UCI_STATUS_UNKNOWN",
	StatusNotApplicable:                 "UCI_STATUS_NOT_APPLICABLE",
	StatusSessionNotExist:               "UCI_STATUS_ERROR_SESSION_NOT_EXIST",
	StatusSessionDuplicate:              "UCI_STATUS_ERROR_SESSION_DUPLICATE",
	StatusSessionActive:                 "UCI_STATUS_ERROR_SESSION_ACTIVE",
	StatusMaxSessionsExceeded:           "UCI_STATUS_ERROR_MAX_SESSIONS_EXCEEDED",
	StatusSessionNotConfigured:          "UCI_STATUS_ERROR_SESSION_NOT_CONFIGURED",
	StatusActiveSessionsOngoing:         "UCI_STATUS_ERROR_ACTIVE_SESSIONS_ONGOING",
	StatusMulticastListFull:             "UCI_STATUS_ERROR_MULTICAST_LIST_FULL",
	StatusAddressNotFound:               "UCI_STATUS_ERROR_ADDRESS_NOT_FOUND",
	StatusAddressAlreadyPresent:         "UCI_STATUS_ERROR_ADDRESS_ALREADY_PRESENT",
	StatusInitiationTimeTooOld:          "UCI_STATUS_ERROR_UWB_INITIATION_TIME_TOO_OLD",
	StatusOKNegativeDistanceReport:      "UCI_STATUS_OK_NEGATIVE_DISTANCE_REPORT",
	StatusInvalidSTSIndex:               "UCI_STATUS_INVALID_STS_IDX",
	StatusRangingTxFailed:               "UCI_STATUS_RANGING_TX_FAILED",
	StatusRangingRxTimeout:              "UCI_STATUS_RANGING_RX_TIMEOUT",
	StatusRangingRxPhyDecFailed:         "UCI_STATUS_RANGING_RX_PHY_DEC_FAILED",
	StatusRangingRxPhyToaFailed:         "UCI_STATUS_RANGING_RX_PHY_TOA_FAILED",
	StatusRangingRxPhyStsFailed:         "UCI_STATUS_RANGING_RX_PHY_STS_FAILED",
	StatusRangingRxMacDecFailed:         "UCI_STATUS_RANGING_RX_MAC_DEC_FAILED",
	StatusRangingRxMacIEDecFailed:       "UCI_STATUS_RANGING_RX_MAC_IE_DEC_FAILED",
	StatusRangingRxMacIEMissing:         "UCI_STATUS_RANGING_RX_MAC_IE_MISSING",
	StatusInvalidResponderSlotIndex:     "UCI_STATUS_INVALID_RESPONDER_SLOT_INDEX",
	StatusLicenseNeed:                   "UCI_STATUS_LICENSE_NEED",
	StatusLicenseVerifyFailed:           "UCI_STATUS_LICENSE_VERIFIED_FAILED",
	StatusInvalidPublicKey:              "UCI_STATUS_INVALID_PUBLIC_KEY",
	StatusSNTooLong:                     "UCI_STATUS_SN_TOO_LONG",
	StatusRangingConsistencyCheckFailed: "UCI_STATUS_RANGING_CONSISTENCY_CHECK_FAILED",
	StatusVerificationFailed:            "UCI_STATUS_VERIFICATION_FAILED",
	StatusReboot:                        "UCI_STATUS_REBOOT",
	StatusRebootWDT:                     "UCI_STATUS_REBOOT_WDT",
	StatusCRCError:                      "UCI_STATUS_CRC_ERROR",
	StatusNotImplemented:                "UCI_STATUS_NOT_IMPLEMENTED",
	StatusUndefined:                     "UCI_STATUS_UNDEF",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UCI_STATUS(0x%02X)", uint8(s))
}

// Known 状态码是否在已定义集合内
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus 将线上字节转换为状态码；未定义的值返回 ErrUnknownStatus，不做默认替换
func ParseStatus(b byte) (Status, error) {
	s := Status(b)
	if !s.Known() {
		return StatusUndefined, fmt.Errorf("%w: 0x%02X", ErrUnknownStatus, b)
	}
	return s, nil
}

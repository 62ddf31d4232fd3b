package sniffer

// 嗅探器射频/测距相关的枚举取值（设备固件定义，按字节写入命令载荷）

// PLLMode PLL 工作模式
type PLLMode uint8

const (
	PLLModeOn    PLLMode = 0
	PLLModeOff   PLLMode = 1
	PLLModeDPD   PLLMode = 2
	PLLModeSleep PLLMode = 3
)

// NBICMode 窄带干扰消除
type NBICMode uint8

const (
	NBICDisable            NBICMode = 0
	NBICEnable             NBICMode = 1
	NBICEnableWithLowPower NBICMode = 2
)

// CipherMode 载荷加密，固件只接受关闭
type CipherMode uint8

const CipherDisable CipherMode = 0xFF

// TxTempComp 发射温度补偿
type TxTempComp uint8

const (
	TxTempCompDisable TxTempComp = 0
	TxTempCompEnable  TxTempComp = 1
)

// XtalTempComp 晶振温度补偿
type XtalTempComp uint8

const (
	XtalTempCompDisable XtalTempComp = 0
	XtalTempCompEnable  XtalTempComp = 1
)

// TOAMode TOA 算法开关
type TOAMode uint8

const (
	TOADisable TOAMode = 0
	TOAEnable  TOAMode = 1
)

// RangingAction 测距序列单条动作
type RangingAction uint8

const (
	RangingActionEmpty        RangingAction = 0
	RangingActionRxWithTOA    RangingAction = 1
	RangingActionTxWithTOA    RangingAction = 2
	RangingActionRxWithoutTOA RangingAction = 3
	RangingActionTxWithoutTOA RangingAction = 4
)

func (a RangingAction) String() string {
	switch a {
	case RangingActionEmpty:
		return "EMPTY"
	case RangingActionRxWithTOA:
		return "RX_WITH_TOA"
	case RangingActionTxWithTOA:
		return "TX_WITH_TOA"
	case RangingActionRxWithoutTOA:
		return "RX_WITHOUT_TOA"
	case RangingActionTxWithoutTOA:
		return "TX_WITHOUT_TOA"
	}
	return "UNKNOWN"
}

// DataInPSDU 测距序列中 PSDU 携带的数据
type DataInPSDU uint8

const (
	DataInPSDUNone                DataInPSDU = 0
	DataInPSDUPrePSDU             DataInPSDU = 1
	DataInPSDUTimestamps          DataInPSDU = 2
	DataInPSDUPrePSDUAndTimestamp DataInPSDU = 3
)

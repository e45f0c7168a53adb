// internal/registers/sdm.go
package registers

// Eastron SDM input register addresses (function 4, float32 over two registers).
const (
	SDMPhase1Voltage               uint16 = 0x0000
	SDMPhase2Voltage               uint16 = 0x0002
	SDMPhase3Voltage               uint16 = 0x0004
	SDMPhase1Current               uint16 = 0x0006
	SDMPhase2Current               uint16 = 0x0008
	SDMPhase3Current               uint16 = 0x000A
	SDMPhase1Power                 uint16 = 0x000C
	SDMPhase2Power                 uint16 = 0x000E
	SDMPhase3Power                 uint16 = 0x0010
	SDMPhase1ApparentPower         uint16 = 0x0012
	SDMPhase2ApparentPower         uint16 = 0x0014
	SDMPhase3ApparentPower         uint16 = 0x0016
	SDMPhase1ReactivePower         uint16 = 0x0018
	SDMPhase2ReactivePower         uint16 = 0x001A
	SDMPhase3ReactivePower         uint16 = 0x001C
	SDMPhase1PowerFactor           uint16 = 0x001E
	SDMPhase2PowerFactor           uint16 = 0x0020
	SDMPhase3PowerFactor           uint16 = 0x0022
	SDMAverageLineToNeutralVolts   uint16 = 0x002A
	SDMAverageLineCurrent          uint16 = 0x002E
	SDMSumLineCurrent              uint16 = 0x0030
	SDMTotalSystemPower            uint16 = 0x0034
	SDMTotalSystemApparentPower    uint16 = 0x0038
	SDMTotalSystemReactivePower    uint16 = 0x003C
	SDMTotalSystemPowerFactor      uint16 = 0x003E
	SDMFrequency                   uint16 = 0x0046
	SDMImportActiveEnergy          uint16 = 0x0048
	SDMExportActiveEnergy          uint16 = 0x004A
	SDMLine1ToLine2Volts           uint16 = 0x00C8
	SDMLine2ToLine3Volts           uint16 = 0x00CA
	SDMLine3ToLine1Volts           uint16 = 0x00CC
	SDMAverageLineToLineVolts      uint16 = 0x00CE
	SDMNeutralCurrent              uint16 = 0x00E0
	SDMTotalActiveEnergy           uint16 = 0x0156
	SDMTotalReactiveEnergy         uint16 = 0x0158
	SDMResettableTotalActiveEnergy uint16 = 0x0180
	SDMResettableImportEnergy      uint16 = 0x0184
	SDMResettableExportEnergy      uint16 = 0x0186
	SDMNetKWh                      uint16 = 0x018C
	SDMImportPower                 uint16 = 0x0500
	SDMExportPower                 uint16 = 0x0502
)

// SDM630Size is the number of registers in the built-in SDM630 table.
const SDM630Size = 20

// SDM630 returns the built-in register list for an Eastron SDM630-V2.
// Order matters: cid == index.
//
// Initial values are out-of-range sentinels so the UI shows "not read yet"
// until the first successful cycle.
func SDM630() []Descriptor {
	d := []Descriptor{
		{Name: "Power-Total", Unit: "W", Initial: 999, Max: 72000, Digits: 0, HasPrio: true, Address: SDMTotalSystemPower},
		{Name: "Frequency", Unit: "HZ", Initial: 99.99, Max: 60, Digits: 2, HasPrio: true, Address: SDMFrequency},
		{Name: "ReactiveP", Unit: "W", Initial: 999, Max: 72000, Digits: 0, Address: SDMTotalSystemReactivePower},
		{Name: "ApparentP", Unit: "W", Initial: 999, Max: 72000, Digits: 0, Address: SDMTotalSystemApparentPower},
		{Name: "Neutral-Curr", Unit: "A", Initial: 99.99, Max: 100, Digits: 2, Address: SDMNeutralCurrent},
		{Name: "L1-3-Curr", Unit: "A", Initial: 99.99, Max: 100, Digits: 2, Address: SDMSumLineCurrent},
		{Name: "PFactor", Unit: "PF", Initial: 9.99, Max: 10, Digits: 2, Address: SDMTotalSystemPowerFactor},
		{Name: "Energy-Sum", Unit: "kWh", Initial: 99999, Max: 99999, Digits: 2, Address: SDMImportActiveEnergy},

		{Name: "Power-L1", Unit: "W", Initial: 999, Max: 72000, Digits: 0, Address: SDMPhase1Power},
		{Name: "Power-L2", Unit: "W", Initial: 999, Max: 72000, Digits: 0, Address: SDMPhase2Power},
		{Name: "Power-L3", Unit: "W", Initial: 999, Max: 72000, Digits: 0, Address: SDMPhase3Power},
		{Name: "ReactiveP-L1", Unit: "W", Initial: 999, Max: 72000, Digits: 0, Address: SDMPhase1ReactivePower},
		{Name: "ReactiveP-L2", Unit: "W", Initial: 999, Max: 72000, Digits: 0, Address: SDMPhase2ReactivePower},
		{Name: "ReactiveP-L3", Unit: "W", Initial: 999, Max: 72000, Digits: 0, Address: SDMPhase3ReactivePower},

		{Name: "Voltage-L1", Unit: "V", Initial: 999, Max: 300, Digits: 1, HasPrio: true, Address: SDMPhase1Voltage},
		{Name: "Voltage-L2", Unit: "V", Initial: 999, Max: 300, Digits: 1, Address: SDMPhase2Voltage},
		{Name: "Voltage-L3", Unit: "V", Initial: 999, Max: 300, Digits: 1, Address: SDMPhase3Voltage},
		{Name: "Current-L1", Unit: "A", Initial: 99.99, Max: 100, Digits: 2, Address: SDMPhase1Current},
		{Name: "Current-L2", Unit: "A", Initial: 99.99, Max: 100, Digits: 2, Address: SDMPhase2Current},
		{Name: "Current-L3", Unit: "A", Initial: 99.99, Max: 100, Digits: 2, Address: SDMPhase3Current},
	}
	for i := range d {
		d[i].CID = i
	}
	return d
}

package cpu

// Effective address modes, bits 5-3 of an EA field.
const (
	ModeData        uint16 = iota // Dn
	ModeAddr                      // An
	ModeAddrInd                   // (An)
	ModeAddrPostInc               // (An)+
	ModeAddrPreDec                // -(An)
	ModeAddrDisp                  // (d16,An)
	ModeAddrIndex                 // (d8,An,Xn)
	ModeOther                     // selected by the register field
)

// Register field values under ModeOther.
const (
	RegAbsShort  uint16 = iota // (xxx).W
	RegAbsLong                 // (xxx).L
	RegPCDisp                  // (d16,PC)
	RegPCIndex                 // (d8,PC,Xn)
	RegImmediate               // #<data>
)

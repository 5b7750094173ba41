package consts

// Spectrum48K provides the constants of the ZX Spectrum 48K ROM.
type Spectrum48K struct{}

// Constants returns the ROM routine entry points and system variables.
func (Spectrum48K) Constants() (map[uint16]Constant, error) {
	constants := make(map[uint16]Constant, len(romRoutines)+len(systemVariables))
	for address, name := range romRoutines {
		constants[address] = Constant{Address: address, Name: name, Routine: true}
	}
	for address, name := range systemVariables {
		constants[address] = Constant{Address: address, Name: name}
	}
	return constants, nil
}

var romRoutines = map[uint16]string{
	0x0000: "START",
	0x0008: "ERROR_1",
	0x0010: "PRINT_A_1",
	0x0018: "GET_CHAR",
	0x0020: "NEXT_CHAR",
	0x0028: "FP_CALC",
	0x0030: "BC_SPACES",
	0x0038: "MASK_INT",
	0x0066: "RESET",
	0x028E: "KEY_SCAN",
	0x02BF: "KEYBOARD",
	0x03B5: "BEEPER",
	0x03F8: "BEEP",
	0x04C2: "SA_BYTES",
	0x0556: "LD_BYTES",
	0x0D6B: "CLS",
	0x0DAF: "CL_ALL",
	0x1601: "CHAN_OPEN",
	0x203C: "PR_STRING",
	0x2D2B: "STACK_BC",
	0x2DA2: "FP_TO_BC",
	0x2DE3: "PRINT_FP",
}

var systemVariables = map[uint16]string{
	0x5C00: "KSTATE",
	0x5C08: "LAST_K",
	0x5C09: "REPDEL",
	0x5C0A: "REPPER",
	0x5C0B: "DEFADD",
	0x5C0D: "K_DATA",
	0x5C0E: "TVDATA",
	0x5C10: "STRMS",
	0x5C36: "CHARS",
	0x5C38: "RASP",
	0x5C39: "PIP",
	0x5C3A: "ERR_NR",
	0x5C3B: "FLAGS",
	0x5C3C: "TV_FLAG",
	0x5C3D: "ERR_SP",
	0x5C3F: "LIST_SP",
	0x5C41: "MODE",
	0x5C42: "NEWPPC",
	0x5C44: "NSPPC",
	0x5C45: "PPC",
	0x5C47: "SUBPPC",
	0x5C48: "BORDCR",
	0x5C49: "E_PPC",
	0x5C4B: "VARS",
	0x5C4D: "DEST",
	0x5C4F: "CHANS",
	0x5C51: "CURCHL",
	0x5C53: "PROG",
	0x5C55: "NXTLIN",
	0x5C57: "DATADD",
	0x5C59: "E_LINE",
	0x5C5B: "K_CUR",
	0x5C5D: "CH_ADD",
	0x5C5F: "X_PTR",
	0x5C61: "WORKSP",
	0x5C63: "STKBOT",
	0x5C65: "STKEND",
	0x5C67: "BREG",
	0x5C68: "MEM",
	0x5C6A: "FLAGS2",
	0x5C6B: "DF_SZ",
	0x5C6C: "S_TOP",
	0x5C6E: "OLDPPC",
	0x5C70: "OSPPC",
	0x5C71: "FLAGX",
	0x5C72: "STRLEN",
	0x5C74: "T_ADDR",
	0x5C76: "SEED",
	0x5C78: "FRAMES",
	0x5C7B: "UDG",
	0x5C7D: "COORDS",
	0x5C7F: "P_POSN",
	0x5C80: "PR_CC",
	0x5C82: "ECHO_E",
	0x5C84: "DF_CC",
	0x5C86: "DF_CCL",
	0x5C88: "S_POSN",
	0x5C8A: "SPOSNL",
	0x5C8C: "SCR_CT",
	0x5C8D: "ATTR_P",
	0x5C8E: "MASK_P",
	0x5C8F: "ATTR_T",
	0x5C90: "MASK_T",
	0x5C91: "P_FLAG",
	0x5C92: "MEMBOT",
	0x5CB0: "NMIADD",
	0x5CB2: "RAMTOP",
	0x5CB4: "P_RAMT",
}

package telnet

import "strconv"

var commandNames = map[byte]string{
	EOF:   "EOF",
	SUSP:  "SUSP",
	ABORT: "ABORT",
	EOR:   "EOR",
	SE:    "SE",
	NOP:   "NOP",
	DM:    "DM",
	BRK:   "BRK",
	IP:    "IP",
	AO:    "AO",
	AYT:   "AYT",
	EC:    "EC",
	EL:    "EL",
	GA:    "GA",
	SB:    "SB",
	WILL:  "WILL",
	WONT:  "WONT",
	DO:    "DO",
	DONT:  "DONT",
	IAC:   "IAC",
}

var optionNames = map[byte]string{
	TransmitBinary:     "BINARY",
	Echo:               "ECHO",
	2:                  "RCP",
	SuppressGoAhead:    "SUPPRESS GO AHEAD",
	4:                  "NAME",
	Status:             "STATUS",
	TimingMark:         "TIMING MARK",
	7:                  "RCTE",
	8:                  "NAOL",
	9:                  "NAOP",
	10:                 "NAOCRD",
	11:                 "NAOHTS",
	12:                 "NAOHTD",
	13:                 "NAOFFD",
	14:                 "NAOVTS",
	15:                 "NAOVTD",
	16:                 "NAOLFD",
	17:                 "EXTEND ASCII",
	18:                 "LOGOUT",
	19:                 "BYTE MACRO",
	20:                 "DATA ENTRY TERMINAL",
	21:                 "SUPDUP",
	22:                 "SUPDUP OUTPUT",
	23:                 "SEND LOCATION",
	TerminalType:       "TERMINAL TYPE",
	EndOfRecord:        "END OF RECORD",
	26:                 "TACACS UID",
	27:                 "OUTPUT MARKING",
	28:                 "TTYLOC",
	29:                 "3270 REGIME",
	30:                 "X.3 PAD",
	NAWS:               "NAWS",
	TerminalSpeed:      "TSPEED",
	ToggleFlowControl:  "LFLOW",
	Linemode:           "LINEMODE",
	XDisplayLocation:   "XDISPLOC",
	OldEnviron:         "OLD-ENVIRON",
	Authentication:     "AUTHENTICATION",
	Encrypt:            "ENCRYPT",
	NewEnviron:         "NEW-ENVIRON",
	Charset:            "CHARSET",
	ExtendedOptionList: "EXOPL",
}

// CommandName returns the mnemonic for a command byte, or its decimal value
// when the byte has no assigned meaning.
func CommandName(b byte) string {
	if name, ok := commandNames[b]; ok {
		return name
	}
	return strconv.Itoa(int(b))
}

// OptionName returns the mnemonic for an option code, or its decimal value.
func OptionName(b byte) string {
	if name, ok := optionNames[b]; ok {
		return name
	}
	return strconv.Itoa(int(b))
}

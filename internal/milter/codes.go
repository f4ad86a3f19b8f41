// Package milter implements the Sendmail milter wire protocol: frame
// codec, option negotiation, and the RCPT-intercept state machine that
// rewrites recipients through the resolver and an external verifier.
package milter

// Commands, in typical execution order. See sendmail/include/libmilter/mfdef.h.
const (
	OptNeg  = 'O' // option negotiation
	Macro   = 'D' // define macro
	Connect = 'C' // connection info
	Unknown = 'U' // any unknown SMTP command
	Helo    = 'H' // HELO
	Abort   = 'A' // abort, valid any time
	Mail    = 'M' // MAIL FROM
	Rcpt    = 'R' // RCPT TO
	Data    = 'T' // DATA
	Header  = 'L' // header
	EOH     = 'N' // end of headers
	Body    = 'B' // body chunk
	EOB     = 'E' // final body chunk
	Quit    = 'Q' // QUIT
	QuitNC  = 'K' // quit, then a new connection follows
)

// Actions, sent back from the milter to the MTA.
const (
	ActionAddRcpt    = '+'
	ActionDelRcpt    = '-'
	ActionAddRcptPar = '2'
	ActionShutdown   = '4'
	ActionAccept     = 'a'
	ActionReplBody   = 'b'
	ActionContinue   = 'c'
	ActionDiscard    = 'd'
	ActionChgFrom    = 'e'
	ActionConnFail   = 'f'
	ActionAddHeader  = 'h'
	ActionInsHeader  = 'i'
	ActionSetSymList = 'l'
	ActionChgHeader  = 'm'
	ActionProgress   = 'p'
	ActionQuarantine = 'q'
	ActionReject     = 'r'
	ActionSkip       = 's'
	ActionTempfail   = 't'
	ActionReplyCode  = 'y'
)

// Requestable/wanted actions bitmask (SMFIF_*).
const (
	FlagAddHdrs     uint32 = 0x0001
	FlagChgBody     uint32 = 0x0002
	FlagAddRcpt     uint32 = 0x0004
	FlagDelRcpt     uint32 = 0x0008
	FlagChgHdrs     uint32 = 0x0010
	FlagQuarantine  uint32 = 0x0020
	FlagChgFrom     uint32 = 0x0040
	FlagAddRcptPar  uint32 = 0x0080
	FlagSetSymList  uint32 = 0x0100
)

// Protocol extension bitmask (SMFIP_*): commands the MTA shouldn't
// send, plus commands it shouldn't expect a reply to.
const (
	ProtoNoConnect uint32 = 0x000001
	ProtoNoHelo    uint32 = 0x000002
	ProtoNoMail    uint32 = 0x000004
	ProtoNoRcpt    uint32 = 0x000008
	ProtoNoBody    uint32 = 0x000010
	ProtoNoHdrs    uint32 = 0x000020
	ProtoNoEOH     uint32 = 0x000040
	ProtoNoUnknown uint32 = 0x000100
	ProtoNoData    uint32 = 0x000200
	ProtoSkip      uint32 = 0x000400
	ProtoRcptRej   uint32 = 0x000800
	ProtoNRHdr     uint32 = 0x000080
	ProtoNRConn    uint32 = 0x001000
	ProtoNRHelo    uint32 = 0x002000
	ProtoNRMail    uint32 = 0x004000
	ProtoNRRcpt    uint32 = 0x008000
	ProtoNRData    uint32 = 0x010000
	ProtoNRUnknown uint32 = 0x020000
	ProtoNREOH     uint32 = 0x040000
	ProtoNRBody    uint32 = 0x080000
)

// Version is the only milter protocol version this adapter speaks.
const Version = 6

// RequiredActions is the action set this server requires the MTA to
// offer: it must be willing to let us add and delete recipients.
const RequiredActions = FlagAddRcpt | FlagDelRcpt

// OfferedProtoExts is what this server declares it doesn't need:
// connection/HELO/MAIL/body/header/EOH/unknown/DATA events, and no
// replies expected for the ones it still receives.
const OfferedProtoExts = ProtoNoConnect | ProtoNoHelo | ProtoNoMail | ProtoNoBody | ProtoNoHdrs |
	ProtoNoEOH | ProtoNRHdr | ProtoNoUnknown | ProtoNoData | ProtoNRConn |
	ProtoNRHelo | ProtoNRMail | ProtoNRData |
	ProtoNRUnknown | ProtoNREOH | ProtoNRBody

// noReplyMask maps a command byte to the protocol-extension bit that,
// when negotiated, means the MTA does not want a reply to it.
var noReplyMask = map[byte]uint32{
	Header:  ProtoNRHdr,
	Connect: ProtoNRConn,
	Helo:    ProtoNRHelo,
	Mail:    ProtoNRMail,
	Rcpt:    ProtoNRRcpt,
	Data:    ProtoNRData,
	Unknown: ProtoNRUnknown,
	EOH:     ProtoNREOH,
	Body:    ProtoNRBody,
}

// contextReset is the set of commands that clear the recipient list
// accumulated so far.
var contextReset = map[byte]bool{
	Abort:  true,
	EOB:    true,
	Quit:   true,
	QuitNC: true,
}

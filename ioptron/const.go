package ioptron

import "time"

const (
	DefaultSerialBaud    = 115200
	DefaultSettleDelay   = 100 * time.Millisecond // spacing between a write and the next read
	DefaultSocketTimeout = 5 * time.Second
	DefaultWatchdog      = 5 * time.Second
	DefaultPollInterval  = time.Second // minimum spacing of Refresh

	serialPollTimeout = 50 * time.Millisecond
	socketReadSize    = 64
)

var (
	bit    = Field{Width: 1}
	digit  = Field{Width: 1}
	ra     = Field{Width: 9}
	signed = Field{Width: 8, Signed: true}
)

// Queries.
var (
	CmdGetStatus        = Command{Mnemonic: "GLS", Reply: ReplyFrame, Template: "vzzzzzzzzzzzzzzzzzzzzzz#"}
	CmdGetTime          = Command{Mnemonic: "GUT", Reply: ReplyFrame, Template: "vzzzzzzzzzzzzzzzzz#"}
	CmdGetEquatorial    = Command{Mnemonic: "GEP", Reply: ReplyFrame, Template: "vzzzzzzzzzzzzzzzzzzz#"}
	CmdGetHorizontal    = Command{Mnemonic: "GAC", Reply: ReplyFrame, Template: "vzzzzzzzzzzzzzzzzz#"}
	CmdGetParking       = Command{Mnemonic: "GPC", Reply: ReplyFrame, Template: "zzzzzzzzzzzzzzzzz#"}
	CmdGetAltitudeLimit = Command{Mnemonic: "GAL", Reply: ReplyFrame, Template: "vzz#"}
	CmdGetCustomRate    = Command{Mnemonic: "GTR", Reply: ReplyFrame, Template: "zzzzz#"}
	CmdGetGuidingRates  = Command{Mnemonic: "AG", Reply: ReplyFrame, Template: "zzzz#"}
	CmdGetMeridian      = Command{Mnemonic: "GMT", Reply: ReplyFrame, Template: "zzz#"}
	CmdGetMaxSlewSpeed  = Command{Mnemonic: "GSR", Reply: ReplyFrame, Template: "z#"}
	CmdGetCoordMemory   = Command{Mnemonic: "QAP", Reply: ReplyFrame, Template: "z#"}
	CmdGetPECIntegrity  = Command{Mnemonic: "GPE", Reply: ReplyFrame, Template: "z"}
	CmdGetPECRecording  = Command{Mnemonic: "GPR", Reply: ReplyFrame, Template: "z"}
	CmdGetRAGuideFilter = Command{Mnemonic: "GGF", Reply: ReplyFrame, Template: "z"}
	CmdGetMainFirmware  = Command{Mnemonic: "FW1", Reply: ReplyFrame, Template: "zzzzzzzzzzzz#", Alternates: []Template{"zzzzzzxxxxxx#"}}
	CmdGetMotorFirmware = Command{Mnemonic: "FW2", Reply: ReplyFrame, Template: "zzzzzzzzzzzz#"}
	CmdGetMountInfo     = Command{Mnemonic: "MountInfo", Reply: ReplyFrame, Template: "zzzz"}
)

// Setters, all acknowledged with "1" or "0".
var (
	CmdSetRightAscension = Command{Mnemonic: "SRA", Fields: []Field{ra}, Reply: ReplyAck}
	CmdSetDeclination    = Command{Mnemonic: "Sd", Fields: []Field{signed}, Reply: ReplyAck}
	CmdSetAltitude       = Command{Mnemonic: "Sa", Fields: []Field{signed}, Reply: ReplyAck}
	CmdSetAzimuth        = Command{Mnemonic: "Sz", Fields: []Field{ra}, Reply: ReplyAck}
	CmdSetParkAltitude   = Command{Mnemonic: "SPH", Fields: []Field{{Width: 8}}, Reply: ReplyAck}
	CmdSetParkAzimuth    = Command{Mnemonic: "SPA", Fields: []Field{ra}, Reply: ReplyAck}
	CmdSetLongitude      = Command{Mnemonic: "SLO", Fields: []Field{signed}, Reply: ReplyAck}
	CmdSetLatitude       = Command{Mnemonic: "SLA", Fields: []Field{signed}, Reply: ReplyAck}
	CmdSetUTCOffset      = Command{Mnemonic: "SG", Fields: []Field{{Width: 3, Signed: true}}, Reply: ReplyAck}
	CmdSetDST            = Command{Mnemonic: "SDS", Fields: []Field{bit}, Reply: ReplyAck}
	CmdSetTime           = Command{Mnemonic: "SUT", Fields: []Field{{Width: 13}}, Reply: ReplyAck}
	CmdSetHemisphere     = Command{Mnemonic: "SHE", Fields: []Field{bit}, Reply: ReplyAck}
	CmdSetAltitudeLimit  = Command{Mnemonic: "SAL", Fields: []Field{{Width: 2, Signed: true}}, Reply: ReplyAck}
	CmdSetTrackingRate   = Command{Mnemonic: "RT", Fields: []Field{digit}, Reply: ReplyAck}
	CmdSetCustomRate     = Command{Mnemonic: "RR", Fields: []Field{{Width: 5, Scale: 10000}}, Reply: ReplyAck}
	CmdSetGuidingRates   = Command{Mnemonic: "RG", Fields: []Field{{Width: 2, Scale: 100}, {Width: 2, Scale: 100}}, Reply: ReplyAck}
	CmdSetMovingSpeed    = Command{Mnemonic: "SR", Fields: []Field{digit}, Reply: ReplyAck}
	CmdSetMaxSlewSpeed   = Command{Mnemonic: "MSR", Fields: []Field{digit}, Reply: ReplyAck}
	CmdSetMeridian       = Command{Mnemonic: "SMT", Fields: []Field{digit, {Width: 2}}, Reply: ReplyAck}
	CmdSetRAGuideFilter  = Command{Mnemonic: "SGF", Fields: []Field{bit}, Reply: ReplyAck}
	CmdSetPECPlayback    = Command{Mnemonic: "SPP", Fields: []Field{bit}, Reply: ReplyAck}
	CmdSetPECRecording   = Command{Mnemonic: "SPR", Fields: []Field{bit}, Reply: ReplyAck}
	CmdSetTracking       = Command{Mnemonic: "ST", Fields: []Field{bit}, Reply: ReplyAck}
	CmdSlewEquatorial    = Command{Mnemonic: "MS1", Reply: ReplyAck}
	CmdSlewHorizontal    = Command{Mnemonic: "MSS", Reply: ReplyAck}
	CmdSynchronize       = Command{Mnemonic: "CM", Reply: ReplyAck}
	CmdStop              = Command{Mnemonic: "Q", Reply: ReplyAck}
	CmdStopEastWest      = Command{Mnemonic: "qR", Reply: ReplyAck}
	CmdStopNorthSouth    = Command{Mnemonic: "qD", Reply: ReplyAck}
	CmdGoHome            = Command{Mnemonic: "MH", Reply: ReplyAck}
	CmdGoMechanicalZero  = Command{Mnemonic: "MSH", Reply: ReplyAck}
	CmdSetZeroPosition   = Command{Mnemonic: "SZP", Reply: ReplyAck}
	CmdPark              = Command{Mnemonic: "MP1", Reply: ReplyAck}
	CmdUnpark            = Command{Mnemonic: "MP0", Reply: ReplyAck}
	CmdResetSettings     = Command{Mnemonic: "RAS", Reply: ReplyAck}
)

// Motion commands the mount never answers.
var (
	CmdMoveNorth = Command{Mnemonic: "mn"}
	CmdMoveEast  = Command{Mnemonic: "me"}
	CmdMoveSouth = Command{Mnemonic: "ms"}
	CmdMoveWest  = Command{Mnemonic: "mw"}

	CmdGuideRAPositive  = Command{Mnemonic: "ZS", Fields: []Field{{Width: 5}}}
	CmdGuideRANegative  = Command{Mnemonic: "ZQ", Fields: []Field{{Width: 5}}}
	CmdGuideDecPositive = Command{Mnemonic: "ZE", Fields: []Field{{Width: 5}}}
	CmdGuideDecNegative = Command{Mnemonic: "ZC", Fields: []Field{{Width: 5}}}
)

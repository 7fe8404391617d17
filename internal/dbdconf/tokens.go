// Package dbdconf parses, validates, mutates, and serializes the
// slurmdbd.conf configuration file.
//
// The file format is line-oriented Key=Value text with a closed
// vocabulary of recognized keys. Values are held as their canonical
// on-disk strings; typed accessors convert on every access rather than
// decoding once at load. Comment lines are dropped on load and never
// written back except for the generated banner.
package dbdconf

// Token identifies one recognized slurmdbd.conf key. The constant value
// is the exact on-disk spelling; matching is case-sensitive.
type Token string

// The closed vocabulary of recognized configuration keys. See the
// slurmdbd.conf(5) man page for the meaning of each parameter.
const (
	ArchiveDir              Token = "ArchiveDir"
	ArchiveEvents           Token = "ArchiveEvents"
	ArchiveJobs             Token = "ArchiveJobs"
	ArchiveResvs            Token = "ArchiveResvs"
	ArchiveScript           Token = "ArchiveScript"
	ArchiveSteps            Token = "ArchiveSteps"
	ArchiveSuspend          Token = "ArchiveSuspend"
	ArchiveTXN              Token = "ArchiveTXN"
	ArchiveUsage            Token = "ArchiveUsage"
	AuthInfo                Token = "AuthInfo"
	AuthAltTypes            Token = "AuthAltTypes"
	AuthAltParameters       Token = "AuthAltParameters"
	AuthType                Token = "AuthType"
	CommitDelay             Token = "CommitDelay"
	CommunicationParameters Token = "CommunicationParameters"
	DbdBackupHost           Token = "DbdBackupHost"
	DbdAddr                 Token = "DbdAddr"
	DbdHost                 Token = "DbdHost"
	DbdPort                 Token = "DbdPort"
	DebugFlags              Token = "DebugFlags"
	DebugLevel              Token = "DebugLevel"
	DebugLevelSyslog        Token = "DebugLevelSyslog"
	DefaultQOS              Token = "DefaultQOS"
	LogFile                 Token = "LogFile"
	LogTimeFormat           Token = "LogTimeFormat"
	MaxQueryTimeRange       Token = "MaxQueryTimeRange"
	MessageTimeout          Token = "MessageTimeout"
	Parameters              Token = "Parameters"
	PidFile                 Token = "PidFile"
	PluginDir               Token = "PluginDir"
	PrivateData             Token = "PrivateData"
	PurgeEventAfter         Token = "PurgeEventAfter"
	PurgeJobAfter           Token = "PurgeJobAfter"
	PurgeResvAfter          Token = "PurgeResvAfter"
	PurgeStepAfter          Token = "PurgeStepAfter"
	PurgeSuspendAfter       Token = "PurgeSuspendAfter"
	PurgeTXNAfter           Token = "PurgeTXNAfter"
	PurgeUsageAfter         Token = "PurgeUsageAfter"
	SlurmUser               Token = "SlurmUser"
	StorageHost             Token = "StorageHost"
	StorageBackupHost       Token = "StorageBackupHost"
	StorageLoc              Token = "StorageLoc"
	StorageParameters       Token = "StorageParameters"
	StoragePass             Token = "StoragePass"
	StoragePort             Token = "StoragePort"
	StorageType             Token = "StorageType"
	StorageUser             Token = "StorageUser"
	TCPTimeout              Token = "TCPTimeout"
	TrackSlurmctldDown      Token = "TrackSlurmctldDown"
	TrackWCKey              Token = "TrackWCKey"
)

// Kind describes how a token's raw string maps onto a semantic value.
type Kind int

const (
	// KindString values pass through unconverted.
	KindString Kind = iota
	// KindBool values are the literals "yes" and "no".
	KindBool
	// KindInt values are decimal integers.
	KindInt
	// KindList values are separator-joined string lists.
	KindList
	// KindPairs values are comma-joined key=value elements.
	KindPairs
)

// keySpec is one row of the dispatch table: the value kind, the list
// separator where relevant, and the validator applied on set. perItem
// runs the validator against each list element instead of the joined
// whole.
type keySpec struct {
	kind    Kind
	sep     string
	check   func(string) error
	perItem bool
}

var registry = map[Token]keySpec{
	ArchiveDir:              {kind: KindString},
	ArchiveEvents:           {kind: KindBool, check: checkBool},
	ArchiveJobs:             {kind: KindBool, check: checkBool},
	ArchiveResvs:            {kind: KindBool, check: checkBool},
	ArchiveScript:           {kind: KindString},
	ArchiveSteps:            {kind: KindBool, check: checkBool},
	ArchiveSuspend:          {kind: KindBool, check: checkBool},
	ArchiveTXN:              {kind: KindBool, check: checkBool},
	ArchiveUsage:            {kind: KindBool, check: checkBool},
	AuthInfo:                {kind: KindString},
	AuthAltTypes:            {kind: KindList, sep: ","},
	AuthAltParameters:       {kind: KindPairs},
	AuthType:                {kind: KindString, check: checkAuthType},
	CommitDelay:             {kind: KindInt},
	CommunicationParameters: {kind: KindList, sep: ","},
	DbdBackupHost:           {kind: KindString},
	DbdAddr:                 {kind: KindString},
	DbdHost:                 {kind: KindString},
	DbdPort:                 {kind: KindInt, check: checkPort},
	DebugFlags:              {kind: KindList, sep: ",", check: checkDebugFlag, perItem: true},
	DebugLevel:              {kind: KindString, check: checkDebugLevel},
	DebugLevelSyslog:        {kind: KindString, check: checkDebugLevel},
	DefaultQOS:              {kind: KindString},
	LogFile:                 {kind: KindString},
	LogTimeFormat:           {kind: KindString, check: checkLogTimeFormat},
	MaxQueryTimeRange:       {kind: KindString, check: checkQueryRange},
	MessageTimeout:          {kind: KindInt},
	Parameters:              {kind: KindList, sep: ","},
	PidFile:                 {kind: KindString},
	PluginDir:               {kind: KindList, sep: ":"},
	PrivateData:             {kind: KindList, sep: ",", check: checkPrivateData, perItem: true},
	PurgeEventAfter:         {kind: KindString, check: checkPurgeDuration},
	PurgeJobAfter:           {kind: KindString, check: checkPurgeDuration},
	PurgeResvAfter:          {kind: KindString, check: checkPurgeDuration},
	PurgeStepAfter:          {kind: KindString, check: checkPurgeDuration},
	PurgeSuspendAfter:       {kind: KindString, check: checkPurgeDuration},
	PurgeTXNAfter:           {kind: KindString, check: checkPurgeDuration},
	PurgeUsageAfter:         {kind: KindString, check: checkPurgeDuration},
	SlurmUser:               {kind: KindString},
	StorageHost:             {kind: KindString},
	StorageBackupHost:       {kind: KindString},
	StorageLoc:              {kind: KindString},
	StorageParameters:       {kind: KindPairs},
	StoragePass:             {kind: KindString, check: checkPassword},
	StoragePort:             {kind: KindInt, check: checkPort},
	StorageType:             {kind: KindString, check: checkStorageType},
	StorageUser:             {kind: KindString},
	TCPTimeout:              {kind: KindInt},
	TrackSlurmctldDown:      {kind: KindBool, check: checkBool},
	TrackWCKey:              {kind: KindBool, check: checkBool},
}

// tokenOrder lists every token in declaration order.
var tokenOrder = []Token{
	ArchiveDir, ArchiveEvents, ArchiveJobs, ArchiveResvs, ArchiveScript,
	ArchiveSteps, ArchiveSuspend, ArchiveTXN, ArchiveUsage, AuthInfo,
	AuthAltTypes, AuthAltParameters, AuthType, CommitDelay,
	CommunicationParameters, DbdBackupHost, DbdAddr, DbdHost, DbdPort,
	DebugFlags, DebugLevel, DebugLevelSyslog, DefaultQOS, LogFile,
	LogTimeFormat, MaxQueryTimeRange, MessageTimeout, Parameters, PidFile,
	PluginDir, PrivateData, PurgeEventAfter, PurgeJobAfter, PurgeResvAfter,
	PurgeStepAfter, PurgeSuspendAfter, PurgeTXNAfter, PurgeUsageAfter,
	SlurmUser, StorageHost, StorageBackupHost, StorageLoc,
	StorageParameters, StoragePass, StoragePort, StorageType, StorageUser,
	TCPTimeout, TrackSlurmctldDown, TrackWCKey,
}

// Tokens returns every recognized key in declaration order.
func Tokens() []Token {
	out := make([]Token, len(tokenOrder))
	copy(out, tokenOrder)
	return out
}

// Lookup resolves an on-disk key name to its Token. Matching is exact
// and case-sensitive: "DbdPort" resolves, "dbdport" does not.
func Lookup(name string) (Token, error) {
	t := Token(name)
	if _, ok := registry[t]; !ok {
		return "", &UnrecognizedKeyError{Name: name}
	}
	return t, nil
}

// Kind returns the value kind for t, or KindString if t is not a
// registry member.
func (t Token) Kind() Kind {
	return registry[t].kind
}

func specFor(t Token) (keySpec, error) {
	ks, ok := registry[t]
	if !ok {
		return keySpec{}, &UnrecognizedKeyError{Name: string(t)}
	}
	return ks, nil
}

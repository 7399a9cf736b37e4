// Package rewrite implements the Query Rewriter (C2): a deterministic
// lexicon pass that always runs, plus an optional LLM pass that only
// engages when a chat-completion capability is configured (§4.2).
package rewrite

// Abbreviations maps common code shorthand to its primary expansion plus
// any alternate expansions, which are queued as synonyms rather than
// substituted in place. Mined from the abbreviation/acronym vocabulary the
// rest of the pack's query-expansion code already curates for code search
// (auth→authentication, btn→button, db→database, fn→function, …), reshaped
// here into the §4.2 "primary + alternates" abbreviation-lexicon contract.
var Abbreviations = map[string]expansion{
	"auth":   {primary: "authentication", alternates: []string{"authorization", "authorize"}},
	"authn":  {primary: "authentication"},
	"authz":  {primary: "authorization"},
	"btn":    {primary: "button"},
	"db":     {primary: "database"},
	"fn":     {primary: "function", alternates: []string{"func", "method"}},
	"func":   {primary: "function", alternates: []string{"method", "fn"}},
	"cfg":    {primary: "configuration", alternates: []string{"config", "settings"}},
	"ctx":    {primary: "context"},
	"req":    {primary: "request"},
	"resp":   {primary: "response", alternates: []string{"reply"}},
	"res":    {primary: "response"},
	"err":    {primary: "error"},
	"msg":    {primary: "message"},
	"nav":    {primary: "navigation"},
	"ui":     {primary: "interface", alternates: []string{"userinterface"}},
	"ux":     {primary: "experience"},
	"app":    {primary: "application"},
	"admin":  {primary: "administrator"},
	"env":    {primary: "environment"},
	"var":    {primary: "variable"},
	"vars":   {primary: "variables"},
	"arg":    {primary: "argument"},
	"args":   {primary: "arguments"},
	"param":  {primary: "parameter"},
	"params": {primary: "parameters"},
	"impl":   {primary: "implementation"},
	"init":   {primary: "initialize", alternates: []string{"initialization"}},
	"misc":   {primary: "miscellaneous"},
	"temp":   {primary: "temporary"},
	"tmp":    {primary: "temporary"},
	"dir":    {primary: "directory"},
	"pkg":    {primary: "package"},
	"lib":    {primary: "library"},
	"libs":   {primary: "libraries"},
	"repo":   {primary: "repository"},
	"mgr":    {primary: "manager"},
	"svc":    {primary: "service"},
	"ctrl":   {primary: "controller"},
	"mw":     {primary: "middleware"},
	"mid":    {primary: "middleware"},
	"dlg":    {primary: "dialog"},
	"mod":    {primary: "module"},
	"obj":    {primary: "object"},
	"arr":    {primary: "array"},
	"str":    {primary: "string"},
	"num":    {primary: "number"},
	"bool":   {primary: "boolean"},
	"idx":    {primary: "index"},
	"len":    {primary: "length"},
	"max":    {primary: "maximum"},
	"min":    {primary: "minimum"},
	"calc":   {primary: "calculate"},
	"eval":   {primary: "evaluate"},
	"exec":   {primary: "execute"},
	"proc":   {primary: "process"},
	"sync":   {primary: "synchronize"},
	"async":  {primary: "asynchronous"},
	"concur": {primary: "concurrent"},
	"conn":   {primary: "connection"},
	"pwd":    {primary: "password"},
	"pw":     {primary: "password"},
	"usr":    {primary: "user"},
	"id":     {primary: "identifier"},
	"ids":    {primary: "identifiers"},
	"addr":   {primary: "address"},
	"attr":   {primary: "attribute"},
	"attrs":  {primary: "attributes"},
	"elem":   {primary: "element"},
	"comp":   {primary: "component"},
	"util":   {primary: "utility"},
	"utils":  {primary: "utilities"},
	"sched":  {primary: "scheduler"},
	"evt":    {primary: "event"},
	"cb":     {primary: "callback"},
	"hdlr":   {primary: "handler"},
	"svr":    {primary: "server"},
	"clnt":   {primary: "client"},
	"tok":    {primary: "token"},
	"perm":   {primary: "permission"},
	"perms":  {primary: "permissions"},
	"reg":    {primary: "register", alternates: []string{"registration", "registry"}},
	"del":    {primary: "delete"},
	"upd":    {primary: "update"},
	"crt":    {primary: "create"},
	"rm":     {primary: "remove"},
}

// expansion is one abbreviations-lexicon entry: the expansion a token is
// replaced with, plus alternates queued as synonyms (never substituted).
type expansion struct {
	primary    string
	alternates []string
}

// DomainSynonyms maps verbs and UI nouns to related vocabulary. Unlike
// Abbreviations, a domain-synonym match never replaces the token — every
// synonym is only added to the synonyms set (§4.2 lexicon pass, second
// bullet).
var DomainSynonyms = map[string][]string{
	"login":     {"signin", "authenticate", "logon"},
	"logout":    {"signout", "deauthenticate"},
	"fetch":     {"get", "retrieve", "load", "request"},
	"modal":     {"dialog", "popup", "overlay"},
	"hook":      {"usehook", "effect", "composable"},
	"route":     {"path", "endpoint", "url", "navigation"},
	"state":     {"store", "data", "context"},
	"click":     {"press", "tap", "trigger"},
	"submit":    {"send", "post", "save"},
	"validate":  {"check", "verify", "sanitize"},
	"render":    {"draw", "display", "paint"},
	"component": {"widget", "element", "view"},
	"button":    {"control", "trigger", "action"},
	"form":      {"input", "field"},
	"toggle":    {"switch", "flip"},
	"search":    {"find", "query", "lookup"},
	"list":      {"array", "collection", "items"},
	"card":      {"tile", "panel"},
	"menu":      {"nav", "dropdown"},
	"table":     {"grid", "rows"},
}

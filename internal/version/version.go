package version

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

func GetVersion() string {
	return Version
}

func GetCommit() string {
	return Commit
}

package version

// Version and Built are set at build time using -ldflags.
var Version = "dev"
var Built = ""

type VersionInfo struct {
	Version string `json:"version"`
	Built   string `json:"built,omitempty"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version: Version,
		Built:   Built,
	}
}

// File: internal/envcatalog/envcatalog.go
// Brief: Catalog of environment variables cfdeploy and the AWS SDK read.

package envcatalog

// VarInfo describes one variable. Dynamic names stand for a family of
// variables and have no single value to show.
type VarInfo struct {
	Category    string
	Name        string
	Description string
	Dynamic     bool
}

func Catalog() []VarInfo {
	return []VarInfo{
		{
			Category:    "Config",
			Name:        "CFDEPLOY_CONFIG",
			Description: "Path to the cfdeploy config file.",
		},
		{
			Category:    "Config",
			Name:        "CFDEPLOY_<FLAG>",
			Dynamic:     true,
			Description: "Set any cfdeploy flag via environment (hyphens become underscores). Example: CFDEPLOY_MAX_POLLS=300.",
		},
		{
			Category:    "Config",
			Name:        "CFDEPLOY_BUCKET",
			Description: "Deployment bucket that receives artifact files.",
		},
		{
			Category:    "Config",
			Name:        "CFDEPLOY_PROJECT",
			Description: "Project (and stack) name; skips the project prompt.",
		},
		{
			Category:    "Config",
			Name:        "XDG_CONFIG_HOME",
			Description: "Base directory searched for cfdeploy/config.yaml.",
		},
		{
			Category:    "Output",
			Name:        "NO_COLOR",
			Description: "Disable ANSI color output when --color=auto (any non-empty value).",
		},
		{
			Category:    "AWS",
			Name:        "AWS_PROFILE",
			Description: "Shared config profile used to resolve credentials.",
		},
		{
			Category:    "AWS",
			Name:        "AWS_ACCESS_KEY_ID",
			Description: "Static access key; takes precedence over the shared profile.",
		},
		{
			Category:    "AWS",
			Name:        "AWS_SECRET_ACCESS_KEY",
			Description: "Secret for AWS_ACCESS_KEY_ID.",
		},
		{
			Category:    "AWS",
			Name:        "AWS_SESSION_TOKEN",
			Description: "Session token for temporary credentials.",
		},
		{
			Category:    "AWS",
			Name:        "AWS_CONFIG_FILE",
			Description: "Alternate location of the shared config file.",
		},
		{
			Category:    "AWS",
			Name:        "AWS_SHARED_CREDENTIALS_FILE",
			Description: "Alternate location of the shared credentials file.",
		},
		{
			Category:    "AWS",
			Name:        "AWS_ENDPOINT_URL",
			Description: "Override the service endpoint (for example a local S3/CloudFormation emulator).",
		},
	}
}

package config

// DefaultSuccessMarker is the text DVWA renders when the injected id matches a row.
const DefaultSuccessMarker = "User ID exists"

// TargetConfig describes the vulnerable endpoint.
type TargetConfig struct {
	URL         string            `yaml:"url"`
	Cookie      string            `yaml:"cookie"`       // raw "k1=v1; k2=v2"
	Param       string            `yaml:"param"`        // query parameter carrying the condition
	FixedParams map[string]string `yaml:"fixed_params"` // sent with every request, e.g. Submit=Submit
}

// OracleConfig selects and tunes the truth oracle.
type OracleConfig struct {
	Kind    string `yaml:"kind"`    // registered oracle name
	Success string `yaml:"success"` // marker whose presence means true
	Match   string `yaml:"match"`   // body, text
	Strict  bool   `yaml:"strict"`  // propagate transport failures instead of answering false
	Votes   int    `yaml:"votes"`   // asks per condition, majority wins
}

// ValidMatchModes lists the supported marker match modes.
var ValidMatchModes = []string{"body", "text"}

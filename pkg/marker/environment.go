package marker

import (
	"maps"
	"strings"
)

// NoExtra is the value bound to the "extra" variable when no optional
// extra is requested. No published extra uses this name.
const NoExtra = "none"

// Environment maps marker variable names to their values for one run.
type Environment map[string]string

// NewEnvironment returns the evaluation environment for a Linux CPython
// interpreter of the given version. pythonVersion may be "3.11" or
// "3.11.4"; python_version always holds major.minor.
func NewEnvironment(pythonVersion string) Environment {
	short, full := pythonVersion, pythonVersion
	if parts := strings.Split(pythonVersion, "."); len(parts) >= 2 {
		short = parts[0] + "." + parts[1]
	}
	if strings.Count(full, ".") == 1 {
		full += ".0"
	}
	return Environment{
		"python_version":                 short,
		"python_full_version":            full,
		"implementation_name":            "cpython",
		"implementation_version":         full,
		"platform_python_implementation": "CPython",
		"os_name":                        "posix",
		"sys_platform":                   "linux",
		"platform_system":                "Linux",
		"platform_machine":               "x86_64",
		"platform_release":               "",
		"platform_version":               "",
		"extra":                          NoExtra,
	}
}

// With returns a copy of env with key set to value. Empty values leave
// the copy unchanged.
func (env Environment) With(key, value string) Environment {
	out := maps.Clone(env)
	if out == nil {
		out = Environment{}
	}
	if value != "" {
		out[key] = value
	}
	return out
}

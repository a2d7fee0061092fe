package conf

import "github.com/spf13/pflag"

const flagKeyAnnotation = "oscigo_settings_key"

// AnnotateFlag records the settings key a command line flag overrides.
// The flag must already be defined on flags.
func AnnotateFlag(flags *pflag.FlagSet, name, key string) {
	// SetAnnotation only fails for undefined flags
	_ = flags.SetAnnotation(name, flagKeyAnnotation, []string{key})
}

// FlagKey returns the settings key recorded by AnnotateFlag.
func FlagKey(f *pflag.Flag) (string, bool) {
	keys, ok := f.Annotations[flagKeyAnnotation]
	if !ok || len(keys) == 0 {
		return "", false
	}
	return keys[0], true
}

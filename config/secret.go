package config

// SecretValue holds credentials read from configuration. It never prints its
// content so configs can be logged safely.
type SecretValue string

func (s SecretValue) Value() string {
	return string(s)
}

func (s SecretValue) String() string {
	if s == "" {
		return ""
	}
	return "******"
}

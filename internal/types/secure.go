package types

// redactedPlaceholder replaces secret values anywhere they would be printed
// or serialized.
const redactedPlaceholder = "***REDACTED***"

// redactedJSON is the placeholder pre-encoded as a JSON string.
var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds a sensitive value (broker SASL password, search
// credentials, solver basic-auth password, embeddings API key) that must never
// appear in logs or serialized output. String() and MarshalJSON() emit a
// redacted placeholder; Unmask() returns the plaintext for the call sites that
// genuinely need it, such as building an Authorization header or a connection
// string.
type SecretString string

// String satisfies fmt.Stringer with the redacted placeholder, so fmt verbs
// and slog attributes cannot leak the value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON emits the redacted placeholder, keeping the value out of config
// dumps and structured log entries.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the plaintext value. Keep calls to this at the point of use.
func (s SecretString) Unmask() string {
	return string(s)
}

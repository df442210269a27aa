package environment

import "fmt"

// Format renders an environment map as the KEY=value slice expected by
// os/exec.Cmd.Env. Entry order is unspecified, matching the map's
// iteration order.
func Format(environment map[string]string) []string {
	result := make([]string, 0, len(environment))
	for key, value := range environment {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	return result
}

package arch

import "strings"

// RegisterCount is the number of general purpose registers.
const RegisterCount = 4

// IsRegister returns true if the given name represents a known register.
func IsRegister(name string) bool {
	return RegisterIndex(name) > -1
}

// RegisterIndex returns the index for the given register.
// Returns -1 if the name is not recognized.
func RegisterIndex(name string) int {
	switch strings.ToUpper(name) {
	case "AL":
		return 0
	case "BL":
		return 1
	case "CL":
		return 2
	case "DL":
		return 3
	}
	return -1
}

// RegisterName returns the name associated with the given register index.
// Returns "" if the index is not recognized.
func RegisterName(n int) string {
	switch n {
	case 0:
		return "AL"
	case 1:
		return "BL"
	case 2:
		return "CL"
	case 3:
		return "DL"
	}
	return ""
}

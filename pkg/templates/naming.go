package templates

import (
	"regexp"
	"strconv"
	"strings"
)

// File name tokens
const (
	IndicatorPrefix      = "marker"
	ContraindicatorToken = "bad"
)

var checkGroupPattern = regexp.MustCompile(`check_(\d+)`)

// Classification is the role information encoded in a template file name
type Classification struct {
	Role  Role
	State string
	Group int
}

// Classify derives role, state token and check group from a file name.
// Matching is case-insensitive. stateTokens is the closed vocabulary; the
// first token contained in the name wins, so callers must order the
// vocabulary so that no token is a prefix of a later one.
func Classify(id string, stateTokens []string) Classification {
	name := strings.ToLower(id)

	var c Classification
	for _, token := range stateTokens {
		if strings.Contains(name, token) {
			c.State = token
			break
		}
	}

	switch {
	case strings.HasPrefix(name, IndicatorPrefix):
		c.Role = RoleIndicator
	case strings.Contains(name, ContraindicatorToken):
		c.Role = RoleContraindicator
	default:
		if m := checkGroupPattern.FindStringSubmatch(name); m != nil {
			group, err := strconv.Atoi(m[1])
			if err == nil {
				c.Role = RoleCheckMember
				c.Group = group
			}
		}
	}

	return c
}

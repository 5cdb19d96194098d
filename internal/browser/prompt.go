package browser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

var errEmptyInput = errors.New("a value is required")

func requireValue(input string) error {
	if strings.TrimSpace(input) == "" {
		return errEmptyInput
	}
	return nil
}

// promptCredentials asks for whichever of username and password is missing. The password
// is masked.
func promptCredentials(username, password string) (string, string, error) {
	if username == "" {
		prompt := promptui.Prompt{Label: "Username", Validate: requireValue}
		value, err := prompt.Run()
		if err != nil {
			return "", "", fmt.Errorf("read username: %w", err)
		}
		username = value
	}
	if password == "" {
		prompt := promptui.Prompt{Label: "Password", Mask: '*', Validate: requireValue}
		value, err := prompt.Run()
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		password = value
	}
	return username, password, nil
}

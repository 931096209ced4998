package prompts

import "fmt"

// Canned replies used when the model cannot or should not be called.

func ConfigurationFallback() string {
	return "I'm sorry, I'm having some configuration issues right now."
}

func EmptyInputFallback(user string) string {
	if user == "" {
		return "I'm sorry, I didn't receive any input from you."
	}
	return fmt.Sprintf("I'm sorry, I didn't receive any input from you, %s.", user)
}

func ModelErrorFallback(user string) string {
	return fmt.Sprintf("I'm sorry, %s, I'm having some technical difficulties right now. Please try again in a moment.", nameOr(user))
}

func ToolLimitFallback(user string) string {
	return fmt.Sprintf("I'm sorry, %s, I couldn't finish working that out. Could you rephrase or ask me something simpler?", nameOr(user))
}

func nameOr(user string) string {
	if user == "" {
		return "friend"
	}
	return user
}

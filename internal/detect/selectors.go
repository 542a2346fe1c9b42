package detect

import "github.com/reachforge/puppet/internal/config"

// Matcher lists per detection type, in scan order within each type.
// Structural scores: platform-native test ids and challenge containers are
// near-certain; generic class and attribute heuristics less so.
var detectionMatchers = map[config.DetectionType][]Matcher{
	config.DetectionCaptcha: {
		Structural{Selector: `iframe[src*="recaptcha"]`, Score: 0.95},
		Structural{Selector: `.g-recaptcha`, Score: 0.95},
		Structural{Selector: `iframe[src*="hcaptcha"]`, Score: 0.95},
		Structural{Selector: `[data-test-id="captcha-internal"]`, Score: 0.95},
		Structural{Selector: `.captcha-container`, Score: 0.9},
		Structural{Selector: `#captcha`, Score: 0.9},
		Structural{Selector: `.challenge-page`, Score: 0.8},
		Structural{Selector: `.security-challenge`, Score: 0.8},
		Structural{Selector: `img[alt*="captcha" i]`, Score: 0.6},
		TextContains{Phrase: "solve the puzzle"},
		TextContains{Phrase: "verify you are human"},
		TextContains{Phrase: "prove you are not a robot"},
		TextContains{Phrase: "complete the security check"},
	},
	config.DetectionPhoneVerification: {
		Structural{Selector: `[data-test-id="phone-verification"]`, Score: 0.95},
		Structural{Selector: `.challenge-stepup-phone`, Score: 0.95},
		Structural{Selector: `.phone-verification`, Score: 0.9},
		Structural{Selector: `.phone-challenge`, Score: 0.9},
		Structural{Selector: `input[type="tel"]`, Score: 0.6},
		TextContains{Phrase: "verify your phone"},
		TextContains{Phrase: "add your phone number"},
		TextContains{Phrase: "verify with sms"},
	},
	config.DetectionSecurityCheckpoint: {
		Structural{Selector: `[data-test-id="checkpoint"]`, Score: 0.95},
		Structural{Selector: `.security-checkpoint`, Score: 0.9},
		Structural{Selector: `.checkpoint-challenge`, Score: 0.9},
		Structural{Selector: `.identity-verification`, Score: 0.8},
		Structural{Selector: `.verification-challenge`, Score: 0.8},
		TextContains{Phrase: "security checkpoint"},
		TextContains{Phrase: "verify your identity"},
		TextContains{Phrase: "verify it's you"},
	},
	config.DetectionAccountRestriction: {
		Structural{Selector: `.account-restricted`, Score: 0.95},
		Structural{Selector: `.temporary-restriction`, Score: 0.9},
		Structural{Selector: `.restriction-notice`, Score: 0.9},
		Structural{Selector: `.account-suspended`, Score: 0.95},
		TextContains{Phrase: "account has been restricted"},
		TextContains{Phrase: "temporarily limited"},
		TextContains{Phrase: "account suspended"},
		TextContains{Phrase: "violating our terms"},
	},
	config.DetectionSuspiciousActivity: {
		Structural{Selector: `.suspicious-activity`, Score: 0.9},
		Structural{Selector: `.unusual-activity`, Score: 0.9},
		Structural{Selector: `.security-warning`, Score: 0.7},
		TextContains{Phrase: "unusual activity detected"},
		TextContains{Phrase: "we noticed unusual activity"},
		TextContains{Phrase: "security alert"},
	},
	config.DetectionLoginChallenge: {
		Structural{Selector: `.login-challenge`, Score: 0.95},
		Structural{Selector: `.two-factor`, Score: 0.9},
		Structural{Selector: `.mfa-challenge`, Score: 0.9},
		Structural{Selector: `input[name*="code" i]`, Score: 0.6},
		TextContains{Phrase: "enter the code"},
		TextContains{Phrase: "verification code"},
		TextContains{Phrase: "two-factor"},
	},
}

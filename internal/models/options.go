package models

// BasicAuth credentials are attached to every request the page makes.
type BasicAuth struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// Cookie is set on the page before navigation.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"http_only,omitempty"`
}

// TriggerSelector describes one pre-capture click interaction.
type TriggerSelector struct {
	Selector    string `json:"selector"`
	DelayBefore int    `json:"delay_before_ms"`
	WaitAfter   int    `json:"wait_after_ms"`
	Description string `json:"description,omitempty"`
}

// FormInput fills one form control during a form step.
type FormInput struct {
	Selector string `json:"selector"`
	Type     string `json:"type"` // text, textarea, select, checkbox, radio
	Value    string `json:"value"`
}

// ValidationCheck is evaluated after a form step submits. Results are
// logged; a failing check never fails the step.
type ValidationCheck struct {
	Selector  string `json:"selector"`
	Kind      string `json:"kind"` // exists, text, class, attribute
	Expected  string `json:"expected,omitempty"`
	Attribute string `json:"attribute,omitempty"`
}

// FormStep is one stage of a multi-step form automation run.
type FormStep struct {
	Inputs                    []FormInput       `json:"form_inputs"`
	SubmitTrigger             string            `json:"submit_trigger,omitempty"`
	WaitAfterSubmit           int               `json:"wait_after_submit_ms,omitempty"`
	ValidationChecks          []ValidationCheck `json:"validation_checks,omitempty"`
	StepTimeout               int               `json:"step_timeout_ms,omitempty"`
	ScreenshotAfterFill       bool              `json:"screenshot_after_fill,omitempty"`
	ScreenshotAfterSubmit     bool              `json:"screenshot_after_submit,omitempty"`
	ScreenshotAfterValidation bool              `json:"screenshot_after_validation,omitempty"`
	Description               string            `json:"description,omitempty"`
}

// ScrollOptions parameterize the auto-scroll loop chained after a
// frame sequence completes.
type ScrollOptions struct {
	Selector    string `json:"selector,omitempty"`
	StepSize    int    `json:"step_size,omitempty"` // Pixels per advance
	IntervalMs  int    `json:"interval_ms,omitempty"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
}

// CaptureOptions is the options bag accepted at enqueue time. For
// group runs it is stored on the group so chained jobs can read it
// back.
type CaptureOptions struct {
	Width             int     `json:"width,omitempty"`
	Height            int     `json:"height,omitempty"`
	DeviceScaleFactor float64 `json:"device_scale_factor,omitempty"`
	FullPage          bool    `json:"full_page,omitempty"`
	Unsticky          bool    `json:"unsticky,omitempty"`

	CustomCSS              string `json:"custom_css,omitempty"`
	CustomJS               string `json:"custom_js,omitempty"`
	InjectBeforeNavigation bool   `json:"inject_before_navigation,omitempty"`
	InjectBeforeViewport   bool   `json:"inject_before_viewport,omitempty"`

	CookiePrevention bool       `json:"cookie_prevention,omitempty"`
	StealthMode      bool       `json:"stealth_mode,omitempty"`
	BasicAuth        *BasicAuth `json:"basic_auth,omitempty"`
	CustomCookies    []Cookie   `json:"custom_cookies,omitempty"`

	TriggerSelectors []TriggerSelector `json:"trigger_selectors,omitempty"`
	FormSteps        []FormStep        `json:"form_steps,omitempty"`

	// Frame-sequence extras.
	Offsets    []int          `json:"offsets,omitempty"` // Seconds after load, one frame each
	AutoScroll bool           `json:"auto_scroll,omitempty"`
	Scroll     *ScrollOptions `json:"scroll,omitempty"`
}

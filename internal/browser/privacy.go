package browser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// consentDomains are third-party consent-manager and cookie-banner
// hosts. Requests to them are aborted when cookie prevention is on,
// so their prompts never render into the capture.
var consentDomains = []string{
	"cookiebot.com",
	"cookielaw.org",
	"onetrust.com",
	"consensu.org",
	"cookie-script.com",
	"usercentrics.eu",
	"trustarc.com",
	"truste.com",
	"didomi.io",
	"sourcepoint.mgr.consensu.org",
	"quantcast.com",
	"cookiepro.com",
	"iubenda.com",
	"osano.com",
}

// bannerCSS hides the usual first-party banner containers that render
// even with consent-manager scripts blocked.
const bannerCSS = `
	#cookie-banner, #cookie-notice, #cookie-consent, #cookieConsent,
	#onetrust-consent-sdk, #CybotCookiebotDialog, #usercentrics-root,
	#didomi-host, #qc-cmp2-container, #sp_message_container,
	.cookie-banner, .cookie-notice, .cookie-consent, .cookie-popup,
	.cc-window, .cc-banner, .gdpr-banner, .consent-banner,
	[id*="cookie-law"], [class*="cookie-overlay"], [aria-label*="cookie"] {
		display: none !important;
		visibility: hidden !important;
	}
`

// storageNeutralizeJS runs before any page script. It makes the
// storage APIs inert so nothing the page writes survives, and queues
// the banner-hiding style for when the document head exists. Must be
// self-invoking; scripts registered for new documents are evaluated
// as raw source.
const storageNeutralizeJS = `(() => {
	const noopStorage = {
		getItem: () => null,
		setItem: () => undefined,
		removeItem: () => undefined,
		clear: () => undefined,
		key: () => null,
		get length() { return 0; },
	};
	try {
		Object.defineProperty(window, 'localStorage', { get: () => noopStorage });
		Object.defineProperty(window, 'sessionStorage', { get: () => noopStorage });
	} catch (e) {}
	try {
		Object.defineProperty(document, 'cookie', {
			get: () => '',
			set: () => true,
		});
	} catch (e) {}
	try {
		if (window.indexedDB) {
			window.indexedDB.open = () => {
				const req = {};
				setTimeout(() => { if (req.onerror) req.onerror(new Event('error')); }, 0);
				return req;
			};
		}
	} catch (e) {}

	const injectStyle = () => {
		const style = document.createElement('style');
		style.textContent = %s;
		document.head.appendChild(style);
	};
	if (document.readyState === 'loading') {
		document.addEventListener('DOMContentLoaded', injectStyle);
	} else if (document.head) {
		injectStyle();
	}
})();`

// applyCookiePrevention neutralizes page storage, blocks requests to
// consent-manager hosts and hides banner markup. Must run before the
// first navigation on the page.
func applyCookiePrevention(page *rod.Page) error {
	if _, err := page.EvalOnNewDocument(consentScript()); err != nil {
		return err
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		if blockedConsentHost(ctx.Request.URL().Hostname()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()

	return nil
}

// blockedConsentHost matches a request host against the deny-list,
// including subdomains.
func blockedConsentHost(host string) bool {
	for _, blocked := range consentDomains {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

// consentScript embeds the banner CSS into the bootstrap script as a
// quoted string literal. Go quoting is valid JavaScript here.
func consentScript() string {
	return fmt.Sprintf(storageNeutralizeJS, strconv.Quote(bannerCSS))
}

// Package browser hosts beacon on a Chromium page driven through Playwright.
//
// A Session owns one browser window and its page. It is the live side of
// every other package:
//
//   - Document mirrors the page into a dom.Document for snapshot capture and
//     element location.
//   - Measure, ScrollIntoView, Paint, Erase and Subscribe implement
//     overlay.Page with small injected scripts.
//   - SpeechEngine, AudioPlayer and Recognizer bind the page's speech APIs
//     to the speech and voice packages.
//
// Page events reach Go through two exposed functions, __beaconEvent for
// scroll, resize and pointer notifications and __beaconVoice for speech
// recognition. Handlers never run on Playwright's connection goroutine.
//
// # Example Usage
//
//	manager := browser.NewSessionManager()
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	defer manager.Shutdown()
//
//	session, err := manager.StartSession("main", browser.SessionOptions{})
//	if err != nil {
//	    return err
//	}
//	err = session.Navigate(ctx, "https://example.com", browser.NavigateOptions{
//	    WaitUntil: "domcontentloaded",
//	})
//	ctrl := overlay.NewController(session)
package browser

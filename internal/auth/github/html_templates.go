package github

import "fmt"

const pageStyle = `body{margin:0;min-height:100vh;display:flex;align-items:center;justify-content:center;padding:1rem;background:#f6f8fa;font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif}
main{max-width:30rem;width:100%;padding:2.5rem;border:1px solid #d0d7de;border-radius:6px;background:#fff;text-align:center}
.mark{width:4rem;height:4rem;line-height:4rem;margin:0 auto 1.5rem;border-radius:50%;color:#fff;font-size:2rem;font-weight:700}
.ok{background:#1f883d}.fail{background:#cf222e}
h1{color:#1f2328;font-size:1.5rem;font-weight:600}p{color:#656d76;line-height:1.5}`

// callbackPage renders one of the fixed pages the listener answers with. Nothing from
// the redirect is ever interpolated into them.
func callbackPage(title, markClass, mark, heading, body, script string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s - gitpress</title><style>%s</style></head>
<body><main>
<div class="mark %s">%s</div>
<h1>%s</h1>
%s
</main>%s</body>
</html>`, title, pageStyle, markClass, mark, heading, body, script)
}

var (
	// LoginSuccessHtml is served once the listener has captured an authorization code.
	LoginSuccessHtml = callbackPage("Signed in", "ok", "&#10003;", "You're almost done",
		"<p>gitpress received GitHub's response and is finishing sign-in.</p><p>You can close this tab and return to the application.</p>",
		"<script>setTimeout(function(){window.close();},5000);</script>")

	// LoginFailureHtml is served when the redirect carried an error or was incomplete.
	LoginFailureHtml = callbackPage("Sign-in not completed", "fail", "!", "Sign-in was not completed",
		"<p>GitHub did not return an authorization for gitpress.</p><p>Close this tab and start sign-in again from the application.</p>",
		"")
)

package livereload

import "strings"

// Path is where Hub is mounted.
const Path = "/_sse"

// ReloadScript connects back to the hub, reloads on update and logs failed
// rebuilds to the console.
const ReloadScript = `<script>
(function () {
  var source = new EventSource("` + Path + `?location=" + encodeURIComponent(location.pathname));
  source.addEventListener("update", function () {
    document.location.reload();
  });
  source.addEventListener("build-error", function (e) {
    console.error("[watch] build failed: " + JSON.parse(e.data));
  });
})();
</script>`

// InjectClient adds ReloadScript before the last </body>, or at the end of
// doc when there is none.
func InjectClient(doc string) string {
	i := strings.LastIndex(doc, "</body>")
	if i < 0 {
		return doc + ReloadScript
	}
	return doc[:i] + ReloadScript + doc[i:]
}

package server

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Movie Recommender System</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
form { display: flex; gap: .5rem; align-items: center; flex-wrap: wrap; }
select { min-width: 24rem; }
.grid { display: grid; grid-template-columns: repeat(5, 1fr); gap: 1rem; margin-top: 1.5rem; }
.card p { margin: 0 0 .5rem; font-weight: bold; }
.card img { width: 100%; }
.error { color: #b00020; margin-top: 1rem; }
</style>
</head>
<body>
<h1>&#127916; Movie Recommender System</h1>
<form method="get" action="/">
  <label for="search">Type or select a movie from the dropdown</label>
  <input id="search" type="search" placeholder="Search titles" autocomplete="off">
  <select id="title" name="title">
  {{- range .Titles}}
    <option value="{{.}}"{{if eq . $.Selected}} selected{{end}}>{{.}}</option>
  {{- end}}
  </select>
  <button type="submit">Show Recommendation</button>
</form>
{{- if .Error}}
<p class="error">{{.Error}}</p>
{{- if .Suggestions}}
<p>Did you mean:
{{- range $i, $s := .Suggestions}}{{if $i}},{{end}} <a href="/?title={{$s}}">{{$s}}</a>{{end}}
</p>
{{- end}}
{{- end}}
{{- if .Results}}
<div class="grid">
{{- range .Results}}
  <div class="card">
    <p>{{.Title}}</p>
    <img src="{{.PosterURL}}" alt="{{.Title}} poster">
  </div>
{{- end}}
</div>
{{- end}}
<script>
(function () {
  var input = document.getElementById("search");
  var select = document.getElementById("title");
  var timer;
  input.addEventListener("input", function () {
    clearTimeout(timer);
    var q = input.value.trim();
    if (!q) { return; }
    timer = setTimeout(function () {
      fetch("/api/v1/movies/search?limit=1&q=" + encodeURIComponent(q))
        .then(function (r) { return r.json(); })
        .then(function (body) {
          if (body.results && body.results.length) { select.value = body.results[0].title; }
        });
    }, 200);
  });
})();
</script>
</body>
</html>
`

package handler

// indexPage is served at the root, where neither a format nor a query is given
const indexPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>geolookup</title>
</head>
<body>
<h1>IP geolocation</h1>
<p>Look up the location of an IP address or hostname:</p>
<pre>
GET /json/{ip-or-hostname}
GET /xml/{ip-or-hostname}
GET /csv/{ip-or-hostname}
</pre>
<p>Leave the address out (<code>/json/</code>) to look up your own.</p>
<p>Fields: ip, country_code, country_name, region_code, region_name, city,
zipcode, latitude, longitude, metro_code, areacode.</p>
</body>
</html>
`

package util

var Banner = `
           _           _ _
  __ _  __| |___ _ __ | (_) ___ ___
 / _' |/ _' / __| '_ \| | |/ __/ _ \
| (_| | (_| \__ \ |_) | | | (_|  __/
 \__,_|\__,_|___/ .__/|_|_|\___\___|
                |_|
`

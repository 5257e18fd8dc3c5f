package cqcode

// faceTable is the fixed 23-row x 10-col lookup table mapping a OneBot
// face id to the emoji MkIX renders it as. A blank cell is a real gap in
// the upstream table, not an omission.
var faceTable = [23][10]string{
	{"😲", "😖", "🥰", "🥲", "😎", "😭", "😊", "🤐", "😪", "😢"},
	{"😡", "🤬", "😛", "😁", "😊", "😣", "😎", " ", "😫", "🤮"},
	{"🫢", "😊", "😶", "😕", "😜", "🥱", "😰", "😅", "😀", "🤠"},
	{"🤓", "🤪", "🤔", "🤫", "😵", "😵", "🥶", "💀", "😰", "🤗"},
	{" ", "🫨", "💓", "🤣", " ", " ", "🐷", " ", " ", "🤗"},

	{" ", " ", " ", "🎂", "⚡", "💣", "🔪", "⚽", " ", "💩"},
	{"☕", "🍚", "💊", "🌹", "🥀", " ", "❤️", "💔", " ", "🎁"},
	{" ", " ", "✉️", " ", "☀️", "🌙", "👍", "👎", "🤝", "✌️"},
	{" ", " ", " ", " ", " ", "😘", "🤪", " ", " ", "🍉"},
	{"🌧️", "☁️", " ", " ", " ", " ", "😥", "😓", "🙄", "👏"},

	{"😥", "😁", "😏", "😏", "🫢", "👎", "😔", "😔", "😅", "😘"},
	{"😲", "🥹", "🔪", "🍺", "🏀", "🏓", "👄", "🐞", "👍", "🫵"},
	{"✊", "👆", "🤘", "👆", "👌", "😉", "☺️", "😏", "🙂", "👋"},
	{"😂", "😮", "🫢", "🙂", "🙂", " ", "❤️", "🧨", "🏮", "🤑"},
	{"🎤", "💼", "✉️", "🔴", "💐", "🕯️", "💢", "🍭", "🍼", "🍜"},

	{"🍌", "✈️", "🚙", "🚅", "🚅", "🚅", "☁️", "🌧️", "💵", "🐼"},
	{"💡", "🪁", "⏰", "☂️", "🎈", "💍", "🛋️", "🧻", "💊", "🔫"},
	{"🐸", "🍵", "😜", "😢", "😛", "😝", "😌", "😡", "😊", "😗"},
	{"😲", "🥺", "😂", "😝", "🦀", "🦙", "🌰", "👻", "🥚", "📱"},
	{"🏵️", "🧼", "🧧", "🤤", "😕", " ", " ", "🙄", "🫢", "👏"},

	{"🙏", "👍", "😊", "😛", "😯", "🌹", "😅", "🥰", "😡", " "},
	{"😂", "🫣", "😐", "😘", "💩", "👊", "😐", "😛", "🥳", "🥸"},
	{"👍", " ", " ", " ", " ", " ", " ", " ", " ", " "},
}

// faceByID returns the emoji for id, and whether id is in range.
func faceByID(id int) (string, bool) {
	if id < 0 || id >= len(faceTable)*10 {
		return "", false
	}
	row, col := id/10, id%10
	return faceTable[row][col], true
}

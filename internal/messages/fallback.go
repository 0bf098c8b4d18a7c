package messages

// Built-in pools used when no external message files are configured or
// a configured file cannot be read.

var fallbackComments = []string{
	"👋 Hey there! This merge request has been gathering digital dust for a while. " +
		"Just a friendly nudge to see if it still needs attention. The code misses you! 🥺",

	"🦥 *sloth mode detected* This one has been moving slower than a sloth " +
		"on a lazy Sunday. Time to pick up the pace or let it rest in peace? 🪦",

	"🧹 The cleanup bot is back! No activity here recently. " +
		"Don't worry, I'm not here to judge, just to remind. Maybe merge it? Maybe close it? " +
		"The suspense is killing me! 😅",

	"🕸️ *blows away cobwebs* Hello? Anyone there? This request is starting to feel " +
		"like an abandoned haunted house. Let's either bring it back to life or give it a proper burial! 👻",

	"⏰ Tick-tock! This request is aging like fine wine... or maybe like milk? 🥛 " +
		"Either way, it could use some love. Your future self will thank you! 🙏",
}

var fallbackGreetings = []string{
	"This is your friendly nudge from the cleanup bot 🤖. The following items " +
		"have been snoozing for {{.StaleDays}} days and could use a check-in:",

	"Beep boop! 🤖 Your friendly neighborhood cleanup bot here! I've noticed some items " +
		"that have been enjoying an extended vacation ({{.StaleDays}} days to be exact):",

	"*adjusts monocle* 🧐 Excuse me, but it appears some of your code has been gathering " +
		"dust for {{.StaleDays}} days. Perhaps it's time for a spring cleaning?",

	"🎺 Attention! This is not a drill! (Okay, maybe it's a friendly drill.) " +
		"Some items have been idle for {{.StaleDays}} days:",

	"👋 Hey there, code wrangler! Your branches and merge requests have been grazing " +
		"peacefully for {{.StaleDays}} days. Time to round them up!",
}

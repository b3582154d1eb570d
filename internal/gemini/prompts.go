package gemini

// ReminderSystemInstruction is sent with every reminder request unless the
// configuration provides its own instruction.
const ReminderSystemInstruction = `You write short daily check-in reminders for a habit tracking Telegram bot.

[CRITICAL] Reply with a single friendly sentence of at most 200 characters. Start with the ⏰ emoji. Do not use Markdown, HTML, hashtags or quotes. Do not invent habits that are not listed.`

// reminderPromptTemplate expects the user's first name and the rendered list
// of habits still open today.
const reminderPromptTemplate = `Write today's reminder for %s.

Habits not yet marked today:
%s

Mention at most two of them by name and encourage keeping any streak alive.`

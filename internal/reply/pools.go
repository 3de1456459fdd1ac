package reply

// fallbackReply is used only if a pool table is ever empty.
const fallbackReply = "متوجه نشدم. می‌تونید دوباره بگید؟"

var responsePools = map[string][]string{
	IntentGreeting: {
		"سلام! چطور می‌تونم کمکتون کنم؟",
		"درود! امیدوارم حالتون خوب باشه.",
		"سلام عزیز! چه خبر؟",
	},
	IntentWeather: {
		"متاسفانه اطلاعات هواشناسی آنلاین ندارم، ولی امیدوارم هوا براتون مناسب باشه!",
		"هوا چطوره بیرون؟ امیدوارم آفتابی و دلپذیر باشه.",
		"برای اطلاعات دقیق هوا بهتره از منابع معتبر استفاده کنید.",
	},
	IntentTime: {
		"ساعت دقیق رو می‌تونید روی صفحه دستگاهتون ببینید.",
		"من به ساعت دسترسی ندارم، ولی زمان همیشه برای یه گپ خوب مناسبه!",
		"بهتره ساعت رو از گوشی‌تون چک کنید، من فقط یه دستیار گفتگو هستم.",
	},
	IntentHelp: {
		"البته! خوشحال می‌شم کمکتون کنم.",
		"حتماً! بگید چطور می‌تونم مفید باشم.",
		"کمک کردن خوشحالم می‌کنه. چی نیاز دارید؟",
	},
	IntentThanks: {
		"خواهش می‌کنم! خوشحالم که تونستم کمک کنم.",
		"قابل نداره! هر وقت نیاز داشتید بگید.",
		"ممنون از لطفتون!",
	},
	IntentGoodbye: {
		"خداحافظ! مراقب خودتون باشید.",
		"بای بای! امیدوارم روز خوبی داشته باشید.",
		"تا بعد! موفق باشید.",
	},
	IntentName: {
		"من یه دستیار صوتی فارسی هستم.",
		"اسم خاصی ندارم، ولی می‌تونید منو دستیار صدا کنید.",
		"من دستیار گفتگوی شما هستم!",
	},
	IntentHowAreYou: {
		"من خوبم، ممنون که پرسیدید! شما چطورید؟",
		"عالیم! امیدوارم شما هم خوب باشید.",
		"همه چی خوبه. شما چه خبر؟",
	},
	IntentJoke: {
		"یه روز یه مداد به پاک‌کن گفت: تو همیشه اشتباهات منو پاک می‌کنی!",
		"می‌دونی چرا کامپیوتر سردش شد؟ چون ویندوزش باز مونده بود!",
		"معلم به شاگرد گفت: چرا دیر اومدی؟ گفت: تابلو نوشته بود آهسته برانید!",
	},
	IntentStory: {
		"روزی روزگاری یه لاک‌پشت صبور بود که هیچ‌وقت از مسابقه ناامید نمی‌شد...",
		"یکی بود یکی نبود، یه روباه زیرک بود که همیشه راه حل پیدا می‌کرد.",
		"در یه روستای کوچیک، دختری زندگی می‌کرد که با ستاره‌ها حرف می‌زد.",
	},
	IntentMath: {
		"حساب کردن رو دوست دارم، ولی برای محاسبات دقیق بهتره از ماشین‌حساب استفاده کنید.",
		"سوال ریاضی جالبیه! یه ماشین‌حساب جواب دقیقش رو بهتون می‌ده.",
		"من بیشتر اهل گفتگوام تا محاسبه، ولی ریاضی خیلی قشنگه!",
	},
	IntentGeneral: {
		"جالبه! بیشتر توضیح بدید.",
		"متوجه شدم. چیز دیگه‌ای هم هست؟",
		"خیلی جالب بود! ادامه بدید.",
	},
}

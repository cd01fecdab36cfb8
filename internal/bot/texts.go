package bot

const (
	startText = "Привет! Я помогу найти фильм или сериал.\n\n" +
		"Просто напиши название, например: <i>Интерстеллар</i>.\n" +
		"Я покажу описание, рейтинг TMDB и ссылку для просмотра.\n\n" +
		"/help — справка"

	helpText = "<b>Как пользоваться</b>\n" +
		"Отправь название фильма или сериала обычным сообщением.\n\n" +
		"<b>Команды</b>\n" +
		"/start — приветствие\n" +
		"/help — эта справка\n" +
		"/history — последние 10 запросов\n" +
		"/stats — какие фильмы я предлагал чаще всего"

	historyEmptyText = "История пуста."
	statsEmptyText   = "Статистика пуста."
	statsHeader      = "Топ по предложенным фильмам:"
	rateLimitedText  = "Слишком много запросов. Попробуйте через минуту."
	notFoundFormat   = "К сожалению, по запросу «%s» ничего не найдено."

	buttonWatch   = "Смотреть"
	buttonHistory = "История"
	buttonStats   = "Статистика"

	CallbackHistory = "ui:history"
	CallbackStats   = "ui:stats"
)

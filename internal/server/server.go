package server

// Данный сервер просто объединяет специфичные HTTP сервера, отвечающие за обработку конкретных сущностей
type Server struct {
	OrderServer
}

func NewServer(
	orderServer OrderServer,
) Server {
	return Server{
		OrderServer: orderServer,
	}
}
